package attribution

import (
	"log/slog"

	"dubber/internal/logging"
	"dubber/internal/track"
)

const (
	// FallbackSpeaker labels every segment when diarization produced no turns.
	FallbackSpeaker = "SPEAKER_00"
	// UnknownSpeaker labels a segment that overlaps none of the turns.
	UnknownSpeaker = "UNKNOWN"
)

// AssignSpeakers labels each segment with the diarized speaker whose turns
// overlap it the most. Overlap is summed across all of a speaker's turns, so
// a speaker with two short overlapping turns beats one with a single longer
// turn only if the total is greater. Ties go to the speaker whose turn
// appears first in the diarization output. Segments are modified in place.
func AssignSpeakers(segments []*track.Segment, turns []track.Turn, logger *slog.Logger) {
	log := logging.NewComponentLogger(logger, "attribution")

	if len(turns) == 0 {
		for _, seg := range segments {
			seg.Speaker = FallbackSpeaker
		}
		if len(segments) > 0 {
			log.Info("no diarization turns, assigning all segments to fallback speaker",
				logging.String(logging.FieldSpeaker, FallbackSpeaker),
				logging.Int("segments", len(segments)),
			)
		}
		return
	}

	unknown := 0
	for _, seg := range segments {
		seg.Speaker = bestSpeaker(seg, turns)
		if seg.Speaker == UnknownSpeaker {
			unknown++
		}
	}
	if unknown > 0 {
		log.Warn("segments without any diarization overlap",
			logging.Int("segments", unknown),
		)
	}
}

func bestSpeaker(seg *track.Segment, turns []track.Turn) string {
	overlaps := make(map[string]float64)
	// Records first appearance so ties resolve deterministically by
	// diarization order.
	order := make(map[string]int)

	for i, turn := range turns {
		o := overlap(seg.Start, seg.End, turn.Start, turn.End)
		if o <= 0 {
			continue
		}
		if _, seen := order[turn.Speaker]; !seen {
			order[turn.Speaker] = i
		}
		overlaps[turn.Speaker] += o
	}
	if len(overlaps) == 0 {
		return UnknownSpeaker
	}

	best := ""
	bestOverlap := 0.0
	for speaker, total := range overlaps {
		switch {
		case total > bestOverlap:
			best, bestOverlap = speaker, total
		case total == bestOverlap && best != "" && order[speaker] < order[best]:
			best = speaker
		}
	}
	return best
}

func overlap(aStart, aEnd, bStart, bEnd float64) float64 {
	start := max(aStart, bStart)
	end := min(aEnd, bEnd)
	return end - start
}
