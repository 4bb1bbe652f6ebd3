package modem

// v27terTrainingFast and v27terTrainingSlow are the training plans for
// V.27ter's two rates (spec §4.3): unmodulated carrier, a short silence,
// an alternating ABAB segment, the scrambled all-ones CDCD segment, then a
// final ones test, with symbol counts sized to the nominal 947 ms training
// time at each rate's baud.
var v27terTrainingFast = []trainingStep{
	{stepUnmodCarrier, 200},
	{stepSilence, 33},
	{stepAlternating, 200},
	{stepScrambledOnes, 1074},
	{stepOnesTest, 8},
}

var v27terTrainingSlow = []trainingStep{
	{stepUnmodCarrier, 150},
	{stepSilence, 25},
	{stepAlternating, 150},
	{stepScrambledOnes, 806},
	{stepOnesTest, 6},
}

func newV27terEngine(t Type) *carrierEngine {
	switch t {
	case TypeV27ter4800:
		return newCarrierEngine(1600, 1800, 3, false, v27terTrainingFast, 8*3, 48)
	case TypeV27ter2400:
		return newCarrierEngine(1200, 1800, 2, false, v27terTrainingSlow, 6*2, 48)
	default:
		panic("modem: not a V.27ter type")
	}
}
