// internal/blasttab/hit.go
package blasttab

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// SyntheticConstruct is the NCBI taxid for synthetic constructs; always dropped.
const SyntheticConstruct = "32630"

// Columns is the DIAMOND/BLAST --outfmt 6 field list this package reads.
var Columns = []string{
	"qseqid", "sseqid", "pident", "length", "mismatch", "gapopen",
	"qstart", "qend", "sstart", "send", "evalue", "bitscore", "staxids",
}

// ErrMalformed marks a hit line that could not be parsed.
var ErrMalformed = errors.New("malformed hit line")

// Hit is one tabular alignment record. Metrics are carried, not interpreted.
type Hit struct {
	Query    string
	Subject  string
	PIdent   float64
	Length   int
	Mismatch int
	GapOpen  int
	QStart   int
	QEnd     int
	SStart   int
	SEnd     int
	EValue   float64
	BitScore float64
	TaxIDs   []string // from the staxids column; nil when the column is absent
	HasTax   bool     // 13-column input

	NoHit bool // unaligned query row (--unal 1)
}

// ParseLine parses one tab-separated record of 12 or 13 columns.
func ParseLine(line string) (Hit, error) {
	f := strings.Split(strings.TrimRight(line, "\r\n"), "\t")
	if len(f) != 12 && len(f) != 13 {
		return Hit{}, fmt.Errorf("%w: %d columns", ErrMalformed, len(f))
	}
	h := Hit{Query: f[0], Subject: f[1]}
	if h.Query == "" {
		return Hit{}, fmt.Errorf("%w: empty qseqid", ErrMalformed)
	}
	var err error
	num := func(i int) float64 {
		if err != nil {
			return 0
		}
		var v float64
		v, err = strconv.ParseFloat(f[i], 64)
		if err != nil {
			err = fmt.Errorf("%w: column %s: %q", ErrMalformed, Columns[i], f[i])
		}
		return v
	}
	h.PIdent = num(2)
	h.Length = int(num(3))
	h.Mismatch = int(num(4))
	h.GapOpen = int(num(5))
	h.QStart = int(num(6))
	h.QEnd = int(num(7))
	h.SStart = int(num(8))
	h.SEnd = int(num(9))
	h.EValue = num(10)
	h.BitScore = num(11)
	if err != nil {
		return Hit{}, err
	}
	if len(f) == 13 {
		h.HasTax = true
		h.TaxIDs = SplitTaxIDs(f[12])
	}
	h.NoHit = h.Subject == "*" && h.EValue == -1
	return h, nil
}

// SplitTaxIDs splits a ';'-separated staxids cell, dropping empties, "0"
// and the synthetic construct taxid.
func SplitTaxIDs(cell string) []string {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil
	}
	parts := strings.Split(cell, ";")
	out := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || p == "0" || p == "N/A" || p == SyntheticConstruct {
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// SubjectTaxon derives a taxon label from a subject id of the form
// "<taxon>_<tag>@<accession>" by removing the "_<tag>@" infix.
func SubjectTaxon(sseqid string) string {
	at := strings.IndexByte(sseqid, '@')
	if at < 0 {
		return sseqid
	}
	us := strings.LastIndexByte(sseqid[:at], '_')
	if us < 0 {
		return sseqid
	}
	return sseqid[:us] + "_" + sseqid[at+1:]
}

// Format renders h back to a tab-separated line without the newline.
func Format(h Hit) string {
	var b strings.Builder
	b.Grow(128)
	sub := h.Subject
	if h.NoHit && sub == "" {
		sub = "*"
	}
	b.WriteString(h.Query)
	b.WriteByte('\t')
	b.WriteString(sub)
	for _, s := range []string{
		strconv.FormatFloat(h.PIdent, 'f', -1, 64),
		strconv.Itoa(h.Length), strconv.Itoa(h.Mismatch), strconv.Itoa(h.GapOpen),
		strconv.Itoa(h.QStart), strconv.Itoa(h.QEnd), strconv.Itoa(h.SStart), strconv.Itoa(h.SEnd),
		strconv.FormatFloat(h.EValue, 'g', -1, 64),
		strconv.FormatFloat(h.BitScore, 'f', -1, 64),
	} {
		b.WriteByte('\t')
		b.WriteString(s)
	}
	if h.HasTax {
		b.WriteByte('\t')
		b.WriteString(strings.Join(h.TaxIDs, ";"))
	}
	return b.String()
}
