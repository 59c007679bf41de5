package uci

import (
	"strconv"
	"strings"
	"unicode"
)

// Info is the last principal-variation report seen before bestmove.
type Info struct {
	Depth   int
	ScoreCP int
	// Mate is the signed distance to mate in moves; zero when the score is
	// given in centipawns.
	Mate int
	PV   []string
}

func parseInfo(line string) (Info, bool) {
	parts := strings.Fields(line)
	if len(parts) == 0 || parts[0] != "info" {
		return Info{}, false
	}
	var (
		info  Info
		pvIdx = -1
	)
	for i := 1; i < len(parts); i++ {
		switch parts[i] {
		case "depth":
			if i+1 < len(parts) {
				if v, err := strconv.Atoi(parts[i+1]); err == nil {
					info.Depth = v
				}
				i++
			}
		case "score":
			if i+2 < len(parts) {
				v, err := strconv.Atoi(parts[i+2])
				if err == nil {
					switch parts[i+1] {
					case "cp":
						info.ScoreCP = v
					case "mate":
						info.Mate = v
					}
				}
				i += 2
			}
		case "string":
			// Free text runs to the end of the line.
			return Info{}, false
		case "pv":
			pvIdx = i + 1
			i = len(parts)
		}
	}
	if pvIdx == -1 || pvIdx >= len(parts) {
		return Info{}, false
	}
	info.PV = append([]string(nil), parts[pvIdx:]...)
	return info, true
}

// parseBestMove splits "bestmove <move> [ponder <move>]". A missing move and
// the null answers "(none)" and "0000" yield an empty move.
func parseBestMove(line string) (move, ponder string) {
	parts := strings.Fields(line)
	if len(parts) < 2 {
		return "", ""
	}
	move = parts[1]
	if move == "(none)" || move == "0000" {
		return "", ""
	}
	if len(parts) >= 4 && parts[2] == "ponder" {
		ponder = parts[3]
	}
	return move, ponder
}

// SanitizeMove trims s, keeps its first whitespace-delimited token and drops
// every byte that is not printable ASCII.
func SanitizeMove(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexFunc(s, unicode.IsSpace); i >= 0 {
		s = s[:i]
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if c := s[i]; c > 0x20 && c < 0x7f {
			b.WriteByte(c)
		}
	}
	return b.String()
}
