// Command genmock writes a synthetic collection bundle to disk: one
// buoy realtime2 reading, one buoy spectral (.spec) reading, one
// wave-model grid summary, and plain weather/chart/tropical text files.
// It exists so internal/orchestrator's process/forecast commands (and
// local development generally) have a bundle to run against without a
// live network fetch.
//
// Usage:
//
//	genmock -data-root ./data -station 51201
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/stonezone/surfcastai/internal/bundle"
)

func main() {
	dataRoot := flag.String("data-root", "./data", "bundle manager data root")
	station := flag.String("station", "51201", "buoy station ID to seed fixtures for")
	flag.Parse()

	if err := run(*dataRoot, *station); err != nil {
		log.Fatal(err)
	}
}

func run(dataRoot, station string) error {
	mgr := bundle.NewManager(dataRoot)
	b, err := mgr.NewBundle()
	if err != nil {
		return fmt.Errorf("new bundle: %w", err)
	}

	if err := writeBuoyFixtures(b, station); err != nil {
		return err
	}
	if err := writeWaveModelFixture(b); err != nil {
		return err
	}
	if err := writeSimpleFixtures(b); err != nil {
		return err
	}

	log.Printf("wrote mock bundle %s under %s", b.ID, b.Root)
	return nil
}

const realtime2Fixture = `#YY  MM DD hh mm WDIR WSPD GST  WVHT   DPD   APD MWD   PRES  ATMP  WTMP  DEWP  VIS PTDY  TIDE
#yr  mo dy hr mn degT m/s  m/s     m   sec   sec degT   hPa  degC  degC  degC   nmi    hPa    ft
2026 07 31 00 00  310  6.0  7.5   2.3  14.0   9.1 320  1015.2  22.0  24.1  18.0   MM   MM     MM
2026 07 31 01 00  315  6.5  8.0   2.5  13.0   9.5 325  1014.8  22.1  24.0  18.1   MM   MM     MM
`

const specFixtureHeader = "#YY MM DD hh mm WVHT SwH SwP WWH WWP SwD WWD STEEPNESS APD MWD"

func writeBuoyFixtures(b *bundle.Bundle, station string) error {
	dir, err := b.AgentDir("buoy")
	if err != nil {
		return fmt.Errorf("buoy agent dir: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, station+".txt"), []byte(realtime2Fixture), 0o644); err != nil {
		return fmt.Errorf("write realtime2 fixture: %w", err)
	}

	specFixture := specFixtureHeader + "\n" +
		"26 07 31 00 00 3.0 2.5 14.0 1.0 7.0 NNW ENE STEEP 10.0 330\n"
	if err := os.WriteFile(filepath.Join(dir, station+".spec"), []byte(specFixture), 0o644); err != nil {
		return fmt.Errorf("write spec fixture: %w", err)
	}

	return nil
}

func writeWaveModelFixture(b *bundle.Bundle) error {
	dir, err := b.AgentDir("wavemodel")
	if err != nil {
		return fmt.Errorf("wavemodel agent dir: %w", err)
	}

	summary := "mean_height_m=2.10 max_height_m=2.80 min_height_m=1.50 mean_period_s=12.50 mean_direction_deg=315.0 n=9\n"
	return os.WriteFile(filepath.Join(dir, "grid_summary.txt"), []byte(summary), 0o644)
}

func writeSimpleFixtures(b *bundle.Bundle) error {
	fixtures := map[string]string{
		"weather":     "Synopsis: NE trades 15-20kt, no significant fronts.\n",
		"tides":       "HIGH 0342 2.1ft  LOW 0951 0.3ft  HIGH 1608 1.9ft  LOW 2214 0.2ft\n",
		"chart":       "A deep low near 42.5N 165.0E with winds of 65 knots and central pressure 955 mb.\n",
		"tropical":    "No active tropical cyclones in the Central Pacific basin.\n",
		"satellite":   "GOES-West visible imagery, Pacific sector, latest pass.\n",
		"climatology": "Monthly climatological average significant wave height: 2.4m.\n",
	}
	for agent, content := range fixtures {
		dir, err := b.AgentDir(agent)
		if err != nil {
			return fmt.Errorf("%s agent dir: %w", agent, err)
		}
		if err := os.WriteFile(filepath.Join(dir, agent+".txt"), []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s fixture: %w", agent, err)
		}
	}
	return nil
}
