package ports

// Target is an unnormalised log density over R^D
type Target interface {
	Dim() int
	LogPDF(x []float64) (float64, error)
}
