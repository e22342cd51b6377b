package domain

// QualityLevel is one of the upstream's named audio fidelity tiers. The
// zero value is not valid; use LevelStandard as the floor.
type QualityLevel string

const (
	LevelStandard QualityLevel = "standard" // 128kbps mp3
	LevelHigher   QualityLevel = "higher"   // 192kbps mp3
	LevelExHigh   QualityLevel = "exhigh"   // 320kbps mp3
	LevelLossless QualityLevel = "lossless" // flac
	LevelHiRes    QualityLevel = "hires"    // Hi-Res flac
	LevelSky      QualityLevel = "sky"      // surround HD
	LevelJyEffect QualityLevel = "jyeffect" // surround immersive
	LevelJyMaster QualityLevel = "jymaster" // master
)

// qualityRank is the comparison order, lowest fidelity first.
var qualityRank = map[QualityLevel]int{
	LevelStandard: 0,
	LevelHigher:   1,
	LevelExHigh:   2,
	LevelLossless: 3,
	LevelHiRes:    4,
	LevelSky:      5,
	LevelJyEffect: 6,
	LevelJyMaster: 7,
}

// FallbackOrder is the search order tried when a requested level is not
// available: highest fidelity first. This is a configured priority list,
// not the reverse of the comparison order (the surround tiers are rarely
// granted and are deliberately not probed).
var FallbackOrder = []QualityLevel{
	LevelHiRes,
	LevelLossless,
	LevelExHigh,
	LevelHigher,
	LevelStandard,
}

// Valid reports whether l names a known tier.
func (l QualityLevel) Valid() bool {
	_, ok := qualityRank[l]
	return ok
}

// Compare orders two levels by fidelity: -1 if l is lower than other,
// 0 if equal, 1 if higher.
func (l QualityLevel) Compare(other QualityLevel) int {
	a, b := qualityRank[l], qualityRank[other]
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Lossless reports whether the tier carries flac audio.
func (l QualityLevel) Lossless() bool {
	return qualityRank[l] >= qualityRank[LevelLossless]
}

// Extension returns the container extension the upstream serves for this
// tier when the response omits it.
func (l QualityLevel) Extension() string {
	if l.Lossless() {
		return "flac"
	}
	return "mp3"
}

// EncodeType is the request parameter the upstream expects alongside a
// quality level.
func (l QualityLevel) EncodeType() string {
	if l.Lossless() {
		return "flac"
	}
	return "mp3"
}
