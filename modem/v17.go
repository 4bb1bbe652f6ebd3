package modem

// v17TrainingLong is V.17's full training sequence (spec §4.3): an ABAB
// segment, the long scrambled all-ones segment, a bridge, and a ones test —
// sized to the nominal 1393 ms training time at 2400 baud.
var v17TrainingLong = []trainingStep{
	{stepAlternating, 256},
	{stepScrambledOnes, 2976},
	{stepBridge, 64},
	{stepOnesTest, 48},
}

// v17TrainingShort is V.17's fast-retrain sequence, used once the gateway
// has already completed one CFR exchange with the far end (spec §4.7):
// a much shorter scrambled segment plus the same ones test.
var v17TrainingShort = []trainingStep{
	{stepScrambledOnes, 38},
	{stepOnesTest, 48},
}

// Sign-off after data: 32 ones then 48 samples of silence, per spec §4.3.
const v17TrailingOnes = 32
const carrierTrailingQuiet = 48

func newV17Engine(t Type, short bool) *carrierEngine {
	var training = v17TrainingLong
	if short {
		training = v17TrainingShort
	}
	switch t {
	case TypeV17_7200:
		return newCarrierEngine(2400, 1700, 3, true, training, v17TrailingOnes, carrierTrailingQuiet)
	case TypeV17_9600:
		return newCarrierEngine(2400, 1700, 4, true, training, v17TrailingOnes, carrierTrailingQuiet)
	case TypeV17_12000:
		return newCarrierEngine(2400, 1700, 5, true, training, v17TrailingOnes, carrierTrailingQuiet)
	case TypeV17_14400:
		return newCarrierEngine(2400, 1700, 6, true, training, v17TrailingOnes, carrierTrailingQuiet)
	default:
		panic("modem: not a V.17 type")
	}
}
