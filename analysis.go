package zsmooth

// CountStepEdges counts horizontally or vertically adjacent pixel pairs whose absolute
// difference exceeds threshold. Quantization banding shows up as many small steps.
func CountStepEdges(img *Image, threshold float32) int {
	if img.empty() {
		return 0
	}
	count := 0
	for y := 0; y < img.H; y++ {
		row := img.Row(y)
		for x := 1; x < img.W; x++ {
			if absDiff(row[x], row[x-1]) > threshold {
				count++
			}
		}
		if y == 0 {
			continue
		}
		prev := img.Row(y - 1)
		for x, v := range row {
			if absDiff(v, prev[x]) > threshold {
				count++
			}
		}
	}
	return count
}

func absDiff(a, b float32) float32 {
	if a > b {
		return a - b
	}
	return b - a
}
