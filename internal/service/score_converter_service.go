package service

import (
	"math"

	"github.com/lshigami/bandscore/internal/model"
)

// BandScale normalizes raw points for one exam type.
type BandScale interface {
	SkillScore(skill model.SkillType, raw, max float64) float64
	Overall(skillScores []float64) float64
}

type ScoreConverterService interface {
	// SkillScore converts raw points earned out of max into the exam type's reporting scale.
	SkillScore(examType model.ExamType, skill model.SkillType, raw, max float64) float64
	Overall(examType model.ExamType, skillScores []float64) float64
	Register(examType model.ExamType, scale BandScale)
}

type scoreConverterServiceImpl struct {
	scales   map[model.ExamType]BandScale
	fallback BandScale
}

func NewScoreConverterService() ScoreConverterService {
	return &scoreConverterServiceImpl{
		scales: map[model.ExamType]BandScale{
			model.ExamTypeIELTSAcademic: ieltsScale{reading: academicReadingBands},
			model.ExamTypeIELTSGeneral:  ieltsScale{reading: generalReadingBands},
		},
		fallback: percentScale{},
	}
}

func (s *scoreConverterServiceImpl) Register(examType model.ExamType, scale BandScale) {
	s.scales[examType] = scale
}

func (s *scoreConverterServiceImpl) scale(examType model.ExamType) BandScale {
	if scale, ok := s.scales[examType]; ok {
		return scale
	}
	return s.fallback
}

func (s *scoreConverterServiceImpl) SkillScore(examType model.ExamType, skill model.SkillType, raw, max float64) float64 {
	return s.scale(examType).SkillScore(skill, raw, max)
}

func (s *scoreConverterServiceImpl) Overall(examType model.ExamType, skillScores []float64) float64 {
	if len(skillScores) == 0 {
		return 0
	}
	return s.scale(examType).Overall(skillScores)
}

// band maps raw marks out of 40 at or above Min to Band. Tables are sorted by Min descending.
type band struct {
	Min  int
	Band float64
}

var listeningBands = []band{
	{39, 9}, {37, 8.5}, {35, 8}, {32, 7.5}, {30, 7}, {26, 6.5}, {23, 6}, {18, 5.5},
	{16, 5}, {13, 4.5}, {10, 4}, {8, 3.5}, {6, 3}, {4, 2.5}, {3, 2}, {1, 1},
}

var academicReadingBands = []band{
	{39, 9}, {37, 8.5}, {35, 8}, {33, 7.5}, {30, 7}, {27, 6.5}, {23, 6}, {19, 5.5},
	{15, 5}, {13, 4.5}, {10, 4}, {8, 3.5}, {6, 3}, {4, 2.5}, {3, 2}, {1, 1},
}

var generalReadingBands = []band{
	{40, 9}, {39, 8.5}, {37, 8}, {36, 7.5}, {34, 7}, {32, 6.5}, {30, 6}, {27, 5.5},
	{23, 5}, {19, 4.5}, {15, 4}, {12, 3.5}, {9, 3}, {6, 2.5}, {3, 2}, {1, 1},
}

func lookupBand(table []band, marks int) float64 {
	for _, b := range table {
		if marks >= b.Min {
			return b.Band
		}
	}
	return 0
}

type ieltsScale struct {
	reading []band
}

func (s ieltsScale) SkillScore(skill model.SkillType, raw, max float64) float64 {
	if max <= 0 {
		return 0
	}
	ratio := clamp(raw/max, 0, 1)
	switch skill {
	case model.SkillListening:
		return lookupBand(listeningBands, int(math.Round(ratio*40)))
	case model.SkillReading:
		return lookupBand(s.reading, int(math.Round(ratio*40)))
	default:
		return math.Round(ratio*9*2) / 2
	}
}

// Overall averages the skill bands and rounds to the nearest half band, with .25 and .75 rounding up.
func (ieltsScale) Overall(skillScores []float64) float64 {
	mean := average(skillScores)
	whole := math.Floor(mean)
	frac := mean - whole
	const eps = 1e-9
	switch {
	case frac < 0.25-eps:
		return whole
	case frac < 0.75-eps:
		return whole + 0.5
	default:
		return whole + 1
	}
}

// percentScale is used for exam types without a registered scale.
type percentScale struct{}

func (percentScale) SkillScore(_ model.SkillType, raw, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return round1(clamp(raw/max, 0, 1) * 100)
}

func (percentScale) Overall(skillScores []float64) float64 {
	return round1(average(skillScores))
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
