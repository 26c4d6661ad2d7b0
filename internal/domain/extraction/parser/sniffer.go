package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"
)

// headerKeywords are column names seen on bank statement exports (multi-language)
var headerKeywords = []string{
	// English
	"date", "description", "amount", "debit", "credit", "balance", "merchant", "details", "memo",
	// Portuguese
	"data", "descrição", "descricao", "débito", "debito", "crédito", "credito", "saldo",
	// Spanish
	"fecha", "descripción", "descripcion", "importe", "cargo", "abono",
}

// csvConfig holds the detected dialect of a CSV/TSV file
type csvConfig struct {
	Delimiter  rune
	SkipLines  int // metadata lines before the header row
	Headers    []string
	SampleRows [][]string
	Preamble   string // raw text above the header, searched for account info
}

// columnMap holds resolved column indices; -1 marks an absent column
type columnMap struct {
	Date          int
	Description   int
	Amount        int
	Debit         int
	Credit        int
	IsDoubleEntry bool
}

const sniffMaxLines = 50

// detectConfig determines delimiter, header row and sample rows for a CSV file
func detectConfig(data []byte) (*csvConfig, error) {
	lines := splitLines(data, sniffMaxLines)
	if len(lines) == 0 {
		return nil, errors.New("file is empty")
	}

	delimiter := detectDelimiter(lines)
	headerIdx := detectHeaderRow(lines, delimiter)
	if headerIdx < 0 {
		return nil, errors.New("no header row found")
	}

	cfg := &csvConfig{
		Delimiter: delimiter,
		SkipLines: headerIdx,
		Preamble:  strings.Join(lines[:headerIdx], "\n"),
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	for i := 0; i <= headerIdx; i++ {
		record, err := reader.Read()
		if err == io.EOF {
			return nil, errors.New("file has no data rows")
		}
		if err != nil {
			continue
		}
		if i == headerIdx {
			cfg.Headers = trimAll(record)
		}
	}

	for len(cfg.SampleRows) < 5 {
		record, err := reader.Read()
		if err != nil {
			break
		}
		cfg.SampleRows = append(cfg.SampleRows, record)
	}

	return cfg, nil
}

// detectDelimiter scores candidate delimiters by column-count consistency
func detectDelimiter(lines []string) rune {
	candidates := []rune{',', ';', '\t', '|'}
	best := ','
	bestScore := -1

	for _, cand := range candidates {
		counts := map[int]int{}
		for _, line := range lines {
			if strings.TrimSpace(line) == "" {
				continue
			}
			n := strings.Count(line, string(cand))
			if n > 0 {
				counts[n]++
			}
		}
		// Score: the most common non-zero split count, weighted by how
		// many lines agree on it.
		score := 0
		for _, freq := range counts {
			if freq > score {
				score = freq
			}
		}
		if score > bestScore {
			bestScore = score
			best = cand
		}
	}
	return best
}

// detectHeaderRow finds the first line that looks like a column header
func detectHeaderRow(lines []string, delimiter rune) int {
	for i, line := range lines {
		fields := strings.Split(line, string(delimiter))
		if len(fields) < 2 {
			continue
		}
		hits := 0
		for _, f := range fields {
			lower := strings.ToLower(strings.Trim(strings.TrimSpace(f), `"'`))
			for _, kw := range headerKeywords {
				if lower == kw || strings.Contains(lower, kw) {
					hits++
					break
				}
			}
		}
		if hits >= 2 {
			return i
		}
	}
	return -1
}

// suggestColumns maps detected headers to transaction fields
func suggestColumns(headers []string) columnMap {
	cols := columnMap{Date: -1, Description: -1, Amount: -1, Debit: -1, Credit: -1}

	for i, header := range headers {
		h := strings.ToLower(strings.Trim(strings.TrimSpace(header), `"'`))
		switch {
		case cols.Date < 0 && containsAny(h, "date", "data", "fecha"):
			cols.Date = i
		case cols.Description < 0 && containsAny(h, "description", "descrição", "descricao", "descripción", "descripcion", "merchant", "details", "memo", "payee"):
			cols.Description = i
		case cols.Debit < 0 && containsAny(h, "debit", "débito", "debito", "cargo", "withdrawal"):
			cols.Debit = i
		case cols.Credit < 0 && containsAny(h, "credit", "crédito", "credito", "abono", "deposit"):
			cols.Credit = i
		case cols.Amount < 0 && containsAny(h, "amount", "importe", "montante", "valor", "value"):
			cols.Amount = i
		}
	}

	if cols.Amount < 0 && cols.Debit >= 0 && cols.Credit >= 0 {
		cols.IsDoubleEntry = true
	}
	return cols
}

func (c columnMap) valid() bool {
	if c.Date < 0 || c.Description < 0 {
		return false
	}
	return c.Amount >= 0 || c.IsDoubleEntry
}

func splitLines(data []byte, max int) []string {
	var lines []string
	for _, raw := range strings.SplitN(string(data), "\n", max+1) {
		lines = append(lines, strings.TrimRight(raw, "\r"))
		if len(lines) == max {
			break
		}
	}
	return lines
}

func trimAll(fields []string) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = strings.TrimSpace(f)
	}
	return out
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
