package forecast

import (
	"gonum.org/v1/gonum/stat"
)

// StandardScaler standardizes each column to zero mean and unit variance.
// Columns with zero variance are left centered but unscaled.
type StandardScaler struct {
	Mean  []float64
	Scale []float64
}

// FitScaler computes per-column population mean and standard deviation over rows.
func FitScaler(rows [][]float64) StandardScaler {
	if len(rows) == 0 {
		return StandardScaler{}
	}
	cols := len(rows[0])
	s := StandardScaler{Mean: make([]float64, cols), Scale: make([]float64, cols)}
	column := make([]float64, len(rows))
	for j := 0; j < cols; j++ {
		for i, r := range rows {
			column[i] = r[j]
		}
		mean, std := stat.PopMeanStdDev(column, nil)
		if std == 0 {
			std = 1
		}
		s.Mean[j], s.Scale[j] = mean, std
	}
	return s
}

// Transform returns a standardized copy of rows.
func (s StandardScaler) Transform(rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, r := range rows {
		out[i] = make([]float64, len(r))
		for j, v := range r {
			out[i][j] = (v - s.Mean[j]) / s.Scale[j]
		}
	}
	return out
}

// InverseTransform maps standardized rows back to physical units.
func (s StandardScaler) InverseTransform(rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, r := range rows {
		out[i] = make([]float64, len(r))
		for j, v := range r {
			out[i][j] = v*s.Scale[j] + s.Mean[j]
		}
	}
	return out
}

// InversePadded inverts a row that covers only the leading columns. The
// missing columns are zero-padded for the inversion and then dropped.
func (s StandardScaler) InversePadded(leading []float64) []float64 {
	padded := make([]float64, len(s.Mean))
	copy(padded, leading)
	full := s.InverseTransform([][]float64{padded})[0]
	return full[:len(leading)]
}
