package utils

import "fmt"

// RecordsFromRows flattens a column-ordered result set into CSV-ready
// string records. NULLs become empty cells.
func RecordsFromRows(columns []string, rows []map[string]any) [][]string {
	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		record := make([]string, len(columns))
		for i, col := range columns {
			if v, ok := row[col]; ok && v != nil {
				record[i] = fmt.Sprintf("%v", v)
			}
		}
		records = append(records, record)
	}
	return records
}
