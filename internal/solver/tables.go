package solver

// parityMove gives the corner permutation parity after each move.
var parityMove = [2][nMoves]int8{
	{1, 0, 1, 1, 0, 1, 1, 0, 1, 1, 0, 1, 1, 0, 1, 1, 0, 1},
	{0, 1, 0, 0, 1, 0, 0, 1, 0, 0, 1, 0, 0, 1, 0, 0, 1, 0},
}

// phase2Move reports whether move index m (3*face + power - 1) is in the
// phase 2 move set <U, D, R2, F2, L2, B2>.
func phase2Move(m int) bool {
	switch m {
	case 3, 5, 6, 8, 12, 14, 15, 17:
		return false
	}
	return true
}

type moveTable [][nMoves]int32

// tables holds the coordinate transition tables and pruning tables.
// It is immutable once built and shared by every search.
type tables struct {
	twistMove    moveTable
	flipMove     moveTable
	frToBRMove   moveTable
	urfToDLFMove moveTable
	urToDFMove   moveTable
	urToULMove   moveTable
	ubToDFMove   moveTable
	mergeURtoDF  [nMerge][nMerge]int32

	sliceURFtoDLFParityPrun []int8
	sliceURtoDFParityPrun   []int8
	sliceTwistPrun          []int8
	sliceFlipPrun           []int8
}

func buildTables() *tables {
	t := &tables{}

	t.twistMove = buildMoveTable(nTwist,
		func(c *cubieCube, i int) { c.setTwist(i) },
		func(c *cubieCube) int { return c.twist() },
		(*cubieCube).cornerMultiply)
	t.flipMove = buildMoveTable(nFlip,
		func(c *cubieCube, i int) { c.setFlip(i) },
		func(c *cubieCube) int { return c.flip() },
		(*cubieCube).edgeMultiply)
	t.frToBRMove = buildMoveTable(nFRtoBR,
		func(c *cubieCube, i int) { c.setFRtoBR(i) },
		func(c *cubieCube) int { return c.frToBR() },
		(*cubieCube).edgeMultiply)
	t.urfToDLFMove = buildMoveTable(nURFtoDLF,
		func(c *cubieCube, i int) { c.setURFtoDLF(i) },
		func(c *cubieCube) int { return c.urfToDLF() },
		(*cubieCube).cornerMultiply)
	t.urToDFMove = buildMoveTable(nURtoDF,
		func(c *cubieCube, i int) { c.setURtoDF(i) },
		func(c *cubieCube) int { return c.urToDF() },
		(*cubieCube).edgeMultiply)
	t.urToULMove = buildMoveTable(nURtoUL,
		func(c *cubieCube, i int) { c.setURtoUL(i) },
		func(c *cubieCube) int { return c.urToUL() },
		(*cubieCube).edgeMultiply)
	t.ubToDFMove = buildMoveTable(nUBtoDF,
		func(c *cubieCube, i int) { c.setUBtoDF(i) },
		func(c *cubieCube) int { return c.ubToDF() },
		(*cubieCube).edgeMultiply)

	for i := 0; i < nMerge; i++ {
		for j := 0; j < nMerge; j++ {
			t.mergeURtoDF[i][j] = int32(mergeURtoDF(i, j))
		}
	}

	t.sliceURFtoDLFParityPrun = buildPhase2Pruning(nURFtoDLF, t.urfToDLFMove, t.frToBRMove)
	t.sliceURtoDFParityPrun = buildPhase2Pruning(nURtoDF, t.urToDFMove, t.frToBRMove)
	t.sliceTwistPrun = buildPhase1Pruning(nTwist, t.twistMove, t.frToBRMove)
	t.sliceFlipPrun = buildPhase1Pruning(nFlip, t.flipMove, t.frToBRMove)
	return t
}

// buildMoveTable applies each of the 18 face turns to every value of a
// coordinate. Quarter turns are applied repeatedly; the fourth application
// restores the cube for the next face.
func buildMoveTable(n int, set func(*cubieCube, int), get func(*cubieCube) int, mul func(*cubieCube, *cubieCube)) moveTable {
	table := make(moveTable, n)
	c := solvedCube()
	for i := 0; i < n; i++ {
		set(&c, i)
		for face := 0; face < 6; face++ {
			for k := 0; k < 3; k++ {
				mul(&c, &moveCubes[face])
				table[i][3*face+k] = int32(get(&c))
			}
			mul(&c, &moveCubes[face])
		}
	}
	return table
}

// buildPhase2Pruning computes, for every (corner-or-edge coordinate, slice
// permutation, parity) triple, the number of phase 2 moves needed to solve
// that part of the cube.
func buildPhase2Pruning(n int, move, sliceMove moveTable) []int8 {
	total := nSlice2 * n * nParity
	prun := newPruning(total)
	prun[0] = 0
	done, depth := 1, int8(0)
	for done < total {
		before := done
		for i := 0; i < total; i++ {
			if prun[i] != depth {
				continue
			}
			parity := i % 2
			coord := (i / 2) / nSlice2
			slice := (i / 2) % nSlice2
			for m := 0; m < nMoves; m++ {
				if !phase2Move(m) {
					continue
				}
				newSlice := int(sliceMove[slice][m])
				newCoord := int(move[coord][m])
				newParity := int(parityMove[parity][m])
				idx := (nSlice2*newCoord+newSlice)*2 + newParity
				if prun[idx] < 0 {
					prun[idx] = depth + 1
					done++
				}
			}
		}
		if done == before {
			break
		}
		depth++
	}
	return prun
}

// buildPhase1Pruning computes the phase 1 distance of every (orientation
// coordinate, slice position) pair.
func buildPhase1Pruning(n int, move, sliceMove moveTable) []int8 {
	total := nSlice1 * n
	prun := newPruning(total)
	prun[0] = 0
	done, depth := 1, int8(0)
	for done < total {
		before := done
		for i := 0; i < total; i++ {
			if prun[i] != depth {
				continue
			}
			coord := i / nSlice1
			slice := i % nSlice1
			for m := 0; m < nMoves; m++ {
				newSlice := int(sliceMove[slice*24][m]) / 24
				newCoord := int(move[coord][m])
				idx := nSlice1*newCoord + newSlice
				if prun[idx] < 0 {
					prun[idx] = depth + 1
					done++
				}
			}
		}
		if done == before {
			break
		}
		depth++
	}
	return prun
}

func newPruning(n int) []int8 {
	prun := make([]int8, n)
	for i := range prun {
		prun[i] = -1
	}
	return prun
}
