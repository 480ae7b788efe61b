package services

// CronbachAlpha computes Cronbach's alpha for a [respondents][items] matrix
// using population variance throughout. Ragged rows, fewer than two items or
// zero total variance yield 0; the result is clamped to [0, 1].
func CronbachAlpha(matrix [][]float64) float64 {
	n := len(matrix)
	if n == 0 {
		return 0
	}
	k := len(matrix[0])
	if k < 2 {
		return 0
	}
	totals := make([]float64, n)
	columns := make([][]float64, k)
	for j := range columns {
		columns[j] = make([]float64, n)
	}
	for i, row := range matrix {
		if len(row) != k {
			return 0
		}
		for j, v := range row {
			columns[j][i] = v
			totals[i] += v
		}
	}
	totalVar := populationVariance(totals)
	if totalVar == 0 {
		return 0
	}
	var itemVarSum float64
	for _, col := range columns {
		itemVarSum += populationVariance(col)
	}
	kf := float64(k)
	alpha := kf / (kf - 1) * (1 - itemVarSum/totalVar)
	switch {
	case alpha < 0:
		return 0
	case alpha > 1:
		return 1
	}
	return alpha
}

func populationVariance(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	var sum float64
	for _, x := range xs {
		d := x - mean
		sum += d * d
	}
	return sum / float64(len(xs))
}
