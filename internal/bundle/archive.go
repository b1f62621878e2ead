package bundle

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	kzip "github.com/klauspost/compress/zip"

	"github.com/stonezone/surfcastai/internal/security"
)

// ArchiveLimits bounds what ExtractArchive will accept, guarding against
// path-traversal and decompression-bomb archives.
type ArchiveLimits struct {
	MaxMemberBytes      int64
	MaxTotalBytes       int64
	MaxCompressionRatio float64
}

// ExtractArchive extracts a zip or tar.gz archive into destDir. Every
// member is validated in a first pass — path containment, per-member size,
// cumulative size, and compression ratio — before any file is written, so
// a rejected archive leaves destDir untouched.
func ExtractArchive(archivePath, destDir string, limits ArchiveLimits) error {
	switch ext := strings.ToLower(filepath.Ext(archivePath)); ext {
	case ".zip":
		return extractZip(archivePath, destDir, limits)
	case ".gz", ".tgz":
		return extractTarGz(archivePath, destDir, limits)
	default:
		return fmt.Errorf("unsupported archive extension %q", ext)
	}
}

type plannedMember struct {
	relPath      string
	uncompressed int64
	compressed   int64
	isDir        bool
}

func validateMembers(members []plannedMember, limits ArchiveLimits) (map[string]struct{}, error) {
	dirs := make(map[string]struct{})
	var total int64

	for _, m := range members {
		cleanRel := filepath.Clean(m.relPath)
		if cleanRel == "." || strings.HasPrefix(cleanRel, "..") || filepath.IsAbs(cleanRel) {
			return nil, &security.SecurityError{Op: "extract_archive", Target: m.relPath, Reason: "path escapes destination directory"}
		}
		for _, part := range strings.Split(cleanRel, string(filepath.Separator)) {
			if part == ".." {
				return nil, &security.SecurityError{Op: "extract_archive", Target: m.relPath, Reason: "path escapes destination directory"}
			}
		}

		if m.isDir {
			dirs[cleanRel] = struct{}{}
			continue
		}

		if limits.MaxMemberBytes > 0 && m.uncompressed > limits.MaxMemberBytes {
			return nil, &security.SecurityError{Op: "extract_archive", Target: m.relPath, Reason: "member exceeds max size"}
		}

		total += m.uncompressed
		if limits.MaxTotalBytes > 0 && total > limits.MaxTotalBytes {
			return nil, &security.SecurityError{Op: "extract_archive", Target: m.relPath, Reason: "cumulative extracted size exceeds limit"}
		}

		// compressed < 0 means the format can't report a meaningful
		// per-member compressed size (e.g. a tar stream inside one gzip
		// envelope) — the caller checks the ratio at the archive level
		// instead.
		if limits.MaxCompressionRatio > 0 && m.compressed > 0 {
			ratio := float64(m.uncompressed) / float64(m.compressed)
			if ratio > limits.MaxCompressionRatio {
				return nil, &security.SecurityError{Op: "extract_archive", Target: m.relPath, Reason: "compression ratio exceeds limit"}
			}
		}
	}

	return dirs, nil
}

// checkOverallRatio guards tar.gz archives, whose members share one gzip
// envelope and so have no meaningful per-member compressed size: it
// compares the on-disk archive size against the sum of uncompressed
// member sizes.
func checkOverallRatio(archivePath string, totalUncompressed int64, limits ArchiveLimits) error {
	if limits.MaxCompressionRatio <= 0 || totalUncompressed <= 0 {
		return nil
	}
	info, err := os.Stat(archivePath)
	if err != nil {
		return fmt.Errorf("stat archive %s: %w", archivePath, err)
	}
	if info.Size() <= 0 {
		return nil
	}
	ratio := float64(totalUncompressed) / float64(info.Size())
	if ratio > limits.MaxCompressionRatio {
		return &security.SecurityError{Op: "extract_archive", Target: archivePath, Reason: "archive compression ratio exceeds limit"}
	}
	return nil
}

func extractZip(archivePath, destDir string, limits ArchiveLimits) error {
	r, err := kzip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open zip %s: %w", archivePath, err)
	}
	defer r.Close()

	members := make([]plannedMember, 0, len(r.File))
	for _, f := range r.File {
		members = append(members, plannedMember{
			relPath:      f.Name,
			uncompressed: int64(f.UncompressedSize64),
			compressed:   int64(f.CompressedSize64),
			isDir:        f.FileInfo().IsDir(),
		})
	}

	if _, err := validateMembers(members, limits); err != nil {
		return err
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}

	for _, f := range r.File {
		target := filepath.Join(destDir, filepath.Clean(f.Name))
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create dir %s: %w", target, err)
			}
			continue
		}
		if err := extractZipFile(f, target); err != nil {
			return err
		}
	}

	return nil
}

func extractZipFile(f *kzip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create parent dir for %s: %w", target, err)
	}

	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open member %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create file %s: %w", target, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, io.LimitReader(rc, int64(f.UncompressedSize64))); err != nil {
		return fmt.Errorf("write file %s: %w", target, err)
	}
	return nil
}

func extractTarGz(archivePath, destDir string, limits ArchiveLimits) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive %s: %w", archivePath, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("open gzip stream: %w", err)
	}
	defer gz.Close()

	// First pass: read the full tar stream purely to plan and validate.
	members, err := planTarMembers(gz)
	if err != nil {
		return err
	}
	if _, err := validateMembers(members, limits); err != nil {
		return err
	}
	var totalUncompressed int64
	for _, m := range members {
		totalUncompressed += m.uncompressed
	}
	if err := checkOverallRatio(archivePath, totalUncompressed, limits); err != nil {
		return err
	}

	// Second pass: re-open the stream and extract for real.
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind archive: %w", err)
	}
	gz2, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("reopen gzip stream: %w", err)
	}
	defer gz2.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}

	tr := tar.NewReader(gz2)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read tar entry: %w", err)
		}

		target := filepath.Join(destDir, filepath.Clean(hdr.Name))
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create dir %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create parent dir for %s: %w", target, err)
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
			if err != nil {
				return fmt.Errorf("create file %s: %w", target, err)
			}
			if _, err := io.Copy(out, io.LimitReader(tr, hdr.Size)); err != nil {
				out.Close()
				return fmt.Errorf("write file %s: %w", target, err)
			}
			out.Close()
		default:
			// skip symlinks, devices, etc. — not expected in agent archives
		}
	}

	return nil
}

func planTarMembers(gz io.Reader) ([]plannedMember, error) {
	tr := tar.NewReader(gz)
	var members []plannedMember
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read tar entry: %w", err)
		}
		members = append(members, plannedMember{
			relPath:      hdr.Name,
			uncompressed: hdr.Size,
			compressed:   -1,
			isDir:        hdr.Typeflag == tar.TypeDir,
		})
	}
	return members, nil
}
