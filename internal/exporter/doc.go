// Package exporter writes melted IBP tables as CSV or XLSX.
//
// CSVWriter produces plain CSV, optionally with a UTF-8 BOM so Excel detects
// the encoding. XLSXWriter produces a single-sheet workbook and stores the
// configured numeric columns as numbers.
//
// Example usage:
//
//	w, err := exporter.NewWriter(exporter.FormatCSV, exporter.WriteOptions{BOMPrefix: true})
//	if err != nil {
//		return err
//	}
//	err = exporter.WriteFile("out/upload.csv", w, headers, records)
package exporter
