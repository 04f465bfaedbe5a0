// internal/lineage/correspondence.go
package lineage

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"taxmrca/internal/fileio"
)

// Correspondence maps an external taxid to a tree node. Name is optional.
type Correspondence struct {
	TaxID  string
	NodeID string
	Name   string
}

// LoadCorrespondence reads "taxid<TAB>node[<TAB>name]" rows from path.
func LoadCorrespondence(path string) ([]Correspondence, error) {
	rc, err := fileio.Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return parseCorrespondence(rc, path)
}

// ParseCorrespondence is LoadCorrespondence for an already open reader.
func ParseCorrespondence(r io.Reader) ([]Correspondence, error) {
	return parseCorrespondence(r, "<input>")
}

func parseCorrespondence(r io.Reader, src string) ([]Correspondence, error) {
	var list []Correspondence
	sc := bufio.NewScanner(r)
	ln := 0
	for sc.Scan() {
		ln++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" || line[0] == '#' {
			continue
		}
		f := strings.Split(line, "\t")
		if len(f) < 2 || len(f) > 3 {
			return nil, fmt.Errorf("%s:%d bad field count", src, ln)
		}
		c := Correspondence{TaxID: strings.TrimSpace(f[0]), NodeID: strings.TrimSpace(f[1])}
		if c.TaxID == "" || c.NodeID == "" {
			return nil, fmt.Errorf("%s:%d empty taxid or node", src, ln)
		}
		if len(f) == 3 {
			c.Name = strings.TrimSpace(f[2])
		}
		list = append(list, c)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return list, nil
}
