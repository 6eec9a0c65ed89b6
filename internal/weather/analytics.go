package weather

import "math"

// TemperatureSummary describes the mean temperatures of a historical range.
// Fields are nil when no day reported a temperature.
type TemperatureSummary struct {
	Average *float64 `json:"averageC"`
	Max     *float64 `json:"maxC"`
	Min     *float64 `json:"minC"`
	Days    int      `json:"days"`
}

// SummarizeHistory computes average, maximum and minimum daily temperature,
// skipping days with no reported temperature. Values are rounded to 2 decimals.
func SummarizeHistory(days []HistoricalDay) TemperatureSummary {
	var (
		sum    float64
		n      int
		lo, hi float64
	)

	for _, d := range days {
		if d.Temperature == nil {
			continue
		}
		t := *d.Temperature
		if n == 0 || t < lo {
			lo = t
		}
		if n == 0 || t > hi {
			hi = t
		}
		sum += t
		n++
	}

	summary := TemperatureSummary{Days: len(days)}
	if n == 0 {
		return summary
	}

	avg := round2(sum / float64(n))
	lo, hi = round2(lo), round2(hi)
	summary.Average = &avg
	summary.Min = &lo
	summary.Max = &hi
	return summary
}

// Correlation is a symmetric matrix of Pearson coefficients between the
// named variables. A nil cell means the coefficient is undefined.
type Correlation struct {
	Variables []string     `json:"variables"`
	Matrix    [][]*float64 `json:"matrix"`
}

// CorrelateHistory correlates temperature, humidity and precipitation across
// days, using only the days where both variables of a pair were reported.
func CorrelateHistory(days []HistoricalDay) Correlation {
	series := []func(HistoricalDay) *float64{
		func(d HistoricalDay) *float64 { return d.Temperature },
		func(d HistoricalDay) *float64 { return d.Humidity },
		func(d HistoricalDay) *float64 { return d.Precipitation },
	}

	c := Correlation{
		Variables: []string{"temperature", "humidity", "precipitation"},
		Matrix:    make([][]*float64, len(series)),
	}

	for i := range series {
		c.Matrix[i] = make([]*float64, len(series))
		for j := range series {
			var xs, ys []float64
			for _, d := range days {
				x, y := series[i](d), series[j](d)
				if x == nil || y == nil {
					continue
				}
				xs = append(xs, *x)
				ys = append(ys, *y)
			}
			c.Matrix[i][j] = pearson(xs, ys)
		}
	}

	return c
}

func pearson(xs, ys []float64) *float64 {
	n := float64(len(xs))
	if len(xs) < 2 {
		return nil
	}

	var sumX, sumY float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX, meanY := sumX/n, sumY/n

	var cov, varX, varY float64
	for i := range xs {
		dx, dy := xs[i]-meanX, ys[i]-meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return nil
	}

	r := cov / math.Sqrt(varX*varY)
	return &r
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
