package twb

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// errNoWorkbook is returned for archives without a root-level .twb.
var errNoWorkbook = errors.New("archive holds no .twb document")

// findWorkbook returns the root-level .twb entry of a packaged workbook.
func findWorkbook(files []*zip.File) (*zip.File, error) {
	for _, f := range files {
		if path.Dir(f.Name) == "." && strings.EqualFold(path.Ext(f.Name), ".twb") {
			return f, nil
		}
	}
	return nil, errNoWorkbook
}

// readPackaged returns the name and contents of the .twb inside a .twbx.
func readPackaged(p string) (string, []byte, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return "", nil, err
	}
	defer zr.Close()

	f, err := findWorkbook(zr.File)
	if err != nil {
		return "", nil, err
	}
	data, err := readEntry(f)
	if err != nil {
		return "", nil, err
	}
	return f.Name, data, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
