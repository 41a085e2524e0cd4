// Package tempsensor implements the SJA1105's on-die temperature
// reading: a 7-iteration binary search against a threshold comparator,
// rather than a direct ADC readout (spec.md §4.7). Grounded on
// services/hal/devices/ltc4015/device.go's poll-then-settle shape
// (enable, wait for the datasheet's settle time, then sample).
package tempsensor

import (
	"github.com/jangala-dev/sja1105-go/caps"
	"github.com/jangala-dev/sja1105-go/errcode"
	"github.com/jangala-dev/sja1105-go/regmap"
	"github.com/jangala-dev/sja1105-go/transport"
)

const (
	settleMs = 1
	lutMax   = len(regmap.TempLUT) - 1 // 40
)

// ReadX10 performs the 7-iteration binary search described in spec.md
// §4.7 and returns the temperature in tenths of a degree Celsius. It
// returns errcode.Error if the search rails at 0 or lutMax, which the
// datasheet treats as "sensor not settled or out of range".
func ReadX10(tr *transport.Transport, clk caps.Clock) (int16, error) {
	status, err := tr.ReadOne(regmap.ACURegTSConfig)
	if err != nil {
		return 0, err
	}
	if status&regmap.TSPowerDownMask != 0 {
		if err := tr.Write(regmap.ACURegTSConfig, []uint32{status &^ regmap.TSPowerDownMask}); err != nil {
			return 0, err
		}
		clk.SleepMs(settleMs)
	}

	lo, hi := 0, lutMax
	guess := (lo + hi) / 2
	prev := -1
	for i := 0; i < 7 && guess != prev; i++ {
		prev = guess

		cfg := (uint32(guess) << regmap.TSThreshShift) & regmap.TSThreshMask
		if err := tr.Write(regmap.ACURegTSConfig, []uint32{cfg}); err != nil {
			return 0, err
		}

		v, err := tr.ReadOne(regmap.ACURegTSStatus)
		if err != nil {
			return 0, err
		}
		if v&regmap.TSExceededMask != 0 {
			lo = guess
		} else {
			hi = guess
		}
		guess = (lo + hi) / 2
	}

	if guess == 0 || guess == lutMax {
		return 0, &errcode.E{C: errcode.Error, Op: "tempsensor.ReadX10", Msg: "binary search railed, sensor not settled or out of range"}
	}
	return regmap.TempLUT[guess], nil
}
