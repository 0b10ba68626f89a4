package solver

import (
	"context"
	"fmt"
	"strings"
)

// maxSearchDepth bounds the per-node arrays of a search.
const maxSearchDepth = 29

// ctxCheckInterval is how many exhausted branches pass between context checks.
const ctxCheckInterval = 1 << 10

// search is the state of one two-phase run. Phase 1 brings the cube into
// the subgroup <U, D, R2, F2, L2, B2>; for each phase 1 solution of the
// current depth, phase 2 looks for a short completion.
type search struct {
	t *tables

	ax [maxSearchDepth + 2]int // face of the move at each depth
	po [maxSearchDepth + 2]int // power of the move: 1, 2 or 3 quarter turns

	flip     [maxSearchDepth + 2]int
	twist    [maxSearchDepth + 2]int
	slice    [maxSearchDepth + 2]int
	parity   [maxSearchDepth + 2]int
	urfToDLF [maxSearchDepth + 2]int
	frToBR   [maxSearchDepth + 2]int
	urToUL   [maxSearchDepth + 2]int
	ubToDF   [maxSearchDepth + 2]int
	urToDF   [maxSearchDepth + 2]int

	minDistPhase1 [maxSearchDepth + 2]int
	minDistPhase2 [maxSearchDepth + 2]int

	depthPhase1 int
	maxDepth    int
}

func newSearch(t *tables, c *cubieCube, maxDepth int) *search {
	if maxDepth > maxSearchDepth {
		maxDepth = maxSearchDepth
	}
	s := &search{t: t, maxDepth: maxDepth}
	s.flip[0] = c.flip()
	s.twist[0] = c.twist()
	s.parity[0] = c.cornerParity()
	s.frToBR[0] = c.frToBR()
	s.slice[0] = s.frToBR[0] / 24
	s.urfToDLF[0] = c.urfToDLF()
	s.urToUL[0] = c.urToUL()
	s.ubToDF[0] = c.ubToDF()
	return s
}

func (s *search) run(ctx context.Context) ([]Move, error) {
	t := s.t
	s.minDistPhase1[1] = 1
	s.depthPhase1 = 1
	n := 0
	busy := false
	exhausted := 0

	for {
		for {
			if s.depthPhase1-n > s.minDistPhase1[n+1] && !busy {
				// Descend: the next move must not turn the same face or,
				// for D/L/B, the opposite face already covered by U/R/F.
				if s.ax[n] == 0 || s.ax[n] == 3 {
					s.ax[n+1] = 1
				} else {
					s.ax[n+1] = 0
				}
				n++
				s.po[n] = 1
			} else if s.po[n]++; s.po[n] > 3 {
				for {
					s.ax[n]++
					if s.ax[n] > 5 {
						exhausted++
						if exhausted%ctxCheckInterval == 0 {
							if err := ctx.Err(); err != nil {
								return nil, fmt.Errorf("%w: search interrupted: %v", ErrSolver, err)
							}
						}
						if n == 0 {
							if s.depthPhase1 >= s.maxDepth {
								return nil, fmt.Errorf("%w: no solution within %d moves", ErrSolver, s.maxDepth)
							}
							s.depthPhase1++
							s.ax[n] = 0
							s.po[n] = 1
							busy = false
							break
						}
						n--
						busy = true
						break
					}
					s.po[n] = 1
					busy = false
					if n == 0 || (s.ax[n-1] != s.ax[n] && s.ax[n-1]-3 != s.ax[n]) {
						break
					}
				}
			} else {
				busy = false
			}
			if !busy {
				break
			}
		}

		mv := 3*s.ax[n] + s.po[n] - 1
		s.flip[n+1] = int(t.flipMove[s.flip[n]][mv])
		s.twist[n+1] = int(t.twistMove[s.twist[n]][mv])
		s.slice[n+1] = int(t.frToBRMove[s.slice[n]*24][mv]) / 24
		s.minDistPhase1[n+1] = max(
			int(t.sliceFlipPrun[nSlice1*s.flip[n+1]+s.slice[n+1]]),
			int(t.sliceTwistPrun[nSlice1*s.twist[n+1]+s.slice[n+1]]),
		)

		if s.minDistPhase1[n+1] == 0 && n >= s.depthPhase1-5 {
			// Any value above 5 stops phase 1 from descending further here.
			s.minDistPhase1[n+1] = 10
			if n == s.depthPhase1-1 {
				total := s.totalDepth()
				if total >= 0 && (total == s.depthPhase1 ||
					(s.ax[s.depthPhase1-1] != s.ax[s.depthPhase1] && s.ax[s.depthPhase1-1] != s.ax[s.depthPhase1]+3)) {
					return s.moves(total), nil
				}
			}
		}
	}
}

// totalDepth runs phase 2 from the end of the current phase 1 sequence and
// returns the combined length, or -1 if phase 2 finds nothing short enough.
func (s *search) totalDepth() int {
	t := s.t
	d1 := s.depthPhase1
	maxDepthPhase2 := min(10, s.maxDepth-d1)

	for i := 0; i < d1; i++ {
		mv := 3*s.ax[i] + s.po[i] - 1
		s.urfToDLF[i+1] = int(t.urfToDLFMove[s.urfToDLF[i]][mv])
		s.frToBR[i+1] = int(t.frToBRMove[s.frToBR[i]][mv])
		s.parity[i+1] = int(parityMove[s.parity[i]][mv])
	}
	dist1 := int(t.sliceURFtoDLFParityPrun[(nSlice2*s.urfToDLF[d1]+s.frToBR[d1])*2+s.parity[d1]])
	if dist1 > maxDepthPhase2 {
		return -1
	}

	for i := 0; i < d1; i++ {
		mv := 3*s.ax[i] + s.po[i] - 1
		s.urToUL[i+1] = int(t.urToULMove[s.urToUL[i]][mv])
		s.ubToDF[i+1] = int(t.ubToDFMove[s.ubToDF[i]][mv])
	}
	s.urToDF[d1] = int(t.mergeURtoDF[s.urToUL[d1]][s.ubToDF[d1]])
	dist2 := int(t.sliceURtoDFParityPrun[(nSlice2*s.urToDF[d1]+s.frToBR[d1])*2+s.parity[d1]])
	if dist2 > maxDepthPhase2 {
		return -1
	}

	s.minDistPhase2[d1] = max(dist1, dist2)
	if s.minDistPhase2[d1] == 0 {
		return d1
	}

	depthPhase2 := 1
	n := d1
	busy := false
	s.po[d1] = 0
	s.ax[d1] = 0
	s.minDistPhase2[n+1] = 1

	for {
		for {
			if d1+depthPhase2-n > s.minDistPhase2[n+1] && !busy {
				// U and D may turn by any amount; other faces only by half turns.
				if s.ax[n] == 0 || s.ax[n] == 3 {
					s.ax[n+1] = 1
					s.po[n+1] = 2
				} else {
					s.ax[n+1] = 0
					s.po[n+1] = 1
				}
				n++
			} else if s.nextPhase2Power(n) > 3 {
				for {
					s.ax[n]++
					if s.ax[n] > 5 {
						if n == d1 {
							if depthPhase2 >= maxDepthPhase2 {
								return -1
							}
							depthPhase2++
							s.ax[n] = 0
							s.po[n] = 1
							busy = false
							break
						}
						n--
						busy = true
						break
					}
					if s.ax[n] == 0 || s.ax[n] == 3 {
						s.po[n] = 1
					} else {
						s.po[n] = 2
					}
					busy = false
					if n == d1 || (s.ax[n-1] != s.ax[n] && s.ax[n-1]-3 != s.ax[n]) {
						break
					}
				}
			} else {
				busy = false
			}
			if !busy {
				break
			}
		}

		mv := 3*s.ax[n] + s.po[n] - 1
		s.urfToDLF[n+1] = int(t.urfToDLFMove[s.urfToDLF[n]][mv])
		s.frToBR[n+1] = int(t.frToBRMove[s.frToBR[n]][mv])
		s.parity[n+1] = int(parityMove[s.parity[n]][mv])
		s.urToDF[n+1] = int(t.urToDFMove[s.urToDF[n]][mv])
		s.minDistPhase2[n+1] = max(
			int(t.sliceURtoDFParityPrun[(nSlice2*s.urToDF[n+1]+s.frToBR[n+1])*2+s.parity[n+1]]),
			int(t.sliceURFtoDLFParityPrun[(nSlice2*s.urfToDLF[n+1]+s.frToBR[n+1])*2+s.parity[n+1]]),
		)
		if s.minDistPhase2[n+1] == 0 {
			return d1 + depthPhase2
		}
	}
}

func (s *search) nextPhase2Power(n int) int {
	if s.ax[n] == 0 || s.ax[n] == 3 {
		s.po[n]++
	} else {
		s.po[n] += 2
	}
	return s.po[n]
}

func (s *search) moves(length int) []Move {
	moves := make([]Move, length)
	for i := range moves {
		moves[i] = Move{Face: faceLetters[s.ax[i]], Turns: s.po[i]}
	}
	return moves
}

// Move is one face turn in Singmaster notation.
type Move struct {
	Face  byte // one of URFDLB
	Turns int  // clockwise quarter turns: 1, 2 or 3
}

func (m Move) String() string {
	switch m.Turns {
	case 2:
		return string(m.Face) + "2"
	case 3:
		return string(m.Face) + "'"
	}
	return string(m.Face)
}

// FormatMoves joins moves with single spaces.
func FormatMoves(moves []Move) string {
	parts := make([]string, len(moves))
	for i, m := range moves {
		parts[i] = m.String()
	}
	return strings.Join(parts, " ")
}

// ParseMoves reads a space-separated move sequence such as "R U2 F'".
func ParseMoves(seq string) ([]Move, error) {
	fields := strings.Fields(seq)
	moves := make([]Move, 0, len(fields))
	for _, f := range fields {
		face := strings.IndexByte(faceLetters, f[0])
		if face < 0 {
			return nil, fmt.Errorf("invalid move %q", f)
		}
		m := Move{Face: f[0], Turns: 1}
		switch f[1:] {
		case "", "1":
		case "2":
			m.Turns = 2
		case "'", "3":
			m.Turns = 3
		default:
			return nil, fmt.Errorf("invalid move %q", f)
		}
		moves = append(moves, m)
	}
	return moves, nil
}
