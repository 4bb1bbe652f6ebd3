package modem

// v29Training is the training plan shared by all three V.29 rates (spec
// §4.3): up to 480 samples of silence, an ABAB segment, the scrambled
// all-ones CDCD segment, then a short ones test — sized to the nominal
// 265 ms training time at 2400 baud.
var v29Training = []trainingStep{
	{stepSilence, 76},
	{stepAlternating, 128},
	{stepScrambledOnes, 384},
	{stepOnesTest, 48},
}

func newV29Engine(t Type) *carrierEngine {
	switch t {
	case TypeV29_4800:
		return newCarrierEngine(2400, 1700, 2, true, v29Training, v17TrailingOnes, carrierTrailingQuiet)
	case TypeV29_7200:
		return newCarrierEngine(2400, 1700, 3, true, v29Training, v17TrailingOnes, carrierTrailingQuiet)
	case TypeV29_9600:
		return newCarrierEngine(2400, 1700, 4, true, v29Training, v17TrailingOnes, carrierTrailingQuiet)
	default:
		panic("modem: not a V.29 type")
	}
}
