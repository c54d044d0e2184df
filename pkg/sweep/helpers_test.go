package sweep

import (
	"fmt"
	"io"
	"math"

	"github.com/sirupsen/logrus"

	"zetawatch/pkg/zeta"
)

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// table returns an evaluator that answers |z| = mags[i] at t = i·step and
// fails anywhere else.
func table(step float64, mags ...float64) zeta.Evaluator {
	return zeta.Func(func(t float64) (complex128, error) {
		i := int(math.Round(t / step))
		if i < 0 || i >= len(mags) || math.Abs(float64(i)*step-t) > 1e-9 {
			return 0, fmt.Errorf("%w: no entry for t=%g", zeta.ErrNumericFailure, t)
		}
		return complex(mags[i], 0), nil
	})
}

func sample(p, mag float64) Sample {
	return Sample{Parameter: p, Value: complex(mag, 0), Magnitude: mag}
}

func unitConfig() Config {
	cfg := DefaultConfig()
	cfg.Step = 1
	return cfg
}
