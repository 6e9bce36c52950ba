// Package epub mutates fulfilled EPUB containers. The only mutation it
// performs is embedding a rights document as a new archive entry; existing
// entries are copied raw and are never recompressed or rewritten.
package epub

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"

	"bindery/internal/services"
)

// RightsPath is the archive entry the rights document is stored under.
const RightsPath = "META-INF/rights.xml"

// EmbedRights adds a rights document to the EPUB at path. The archive is
// rewritten through a temporary sibling file and renamed into place, with
// every pre-existing entry copied byte for byte. An entry already present
// at RightsPath is a failure; fulfillment never overwrites rights.
func EmbedRights(path string, rights []byte) error {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return services.Wrap(services.ErrArchive, "fulfilling", "open container", "Failed to store rights in container", err)
	}
	defer reader.Close()

	for _, entry := range reader.File {
		if entry.Name == RightsPath {
			return services.Wrap(services.ErrArchive, "fulfilling", "embed rights", "Container already carries a rights entry", nil)
		}
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".rights-*")
	if err != nil {
		return services.Wrap(services.ErrArchive, "fulfilling", "embed rights", "Failed to store rights in container", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()

	writer := zip.NewWriter(tmp)
	if err := copyRawEntries(writer, reader.File); err != nil {
		_ = writer.Close()
		_ = tmp.Close()
		return err
	}

	entry, err := writer.Create(RightsPath)
	if err != nil {
		_ = writer.Close()
		_ = tmp.Close()
		return services.Wrap(services.ErrArchive, "fulfilling", "embed rights", "Failed to store rights in container", err)
	}
	if _, err := entry.Write(rights); err != nil {
		_ = writer.Close()
		_ = tmp.Close()
		return services.Wrap(services.ErrArchive, "fulfilling", "embed rights", "Failed to store rights in container", err)
	}

	if err := writer.Close(); err != nil {
		_ = tmp.Close()
		return services.Wrap(services.ErrArchive, "fulfilling", "embed rights", "Failed to store rights in container", err)
	}
	if err := tmp.Close(); err != nil {
		return services.Wrap(services.ErrArchive, "fulfilling", "embed rights", "Failed to store rights in container", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return services.Wrap(services.ErrArchive, "fulfilling", "embed rights", "Failed to store rights in container", err)
	}
	tmpName = ""
	return nil
}

// copyRawEntries transfers entries without decompressing them, so the
// copied bytes are identical to the source archive's.
func copyRawEntries(writer *zip.Writer, entries []*zip.File) error {
	for _, entry := range entries {
		raw, err := entry.OpenRaw()
		if err != nil {
			return services.Wrap(services.ErrArchive, "fulfilling", "copy entry", "Failed to store rights in container", err)
		}
		header := entry.FileHeader
		dst, err := writer.CreateRaw(&header)
		if err != nil {
			return services.Wrap(services.ErrArchive, "fulfilling", "copy entry", "Failed to store rights in container", err)
		}
		if _, err := io.Copy(dst, raw); err != nil {
			return services.Wrap(services.ErrArchive, "fulfilling", "copy entry", "Failed to store rights in container", err)
		}
	}
	return nil
}
