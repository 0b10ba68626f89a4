package solver

// Coordinate sizes of the two-phase search.
const (
	nTwist    = 2187 // 3^7 corner orientations
	nFlip     = 2048 // 2^11 edge orientations
	nSlice1   = 495  // positions of the four UD-slice edges
	nSlice2   = 24   // permutations of the UD-slice edges inside the slice
	nParity   = 2
	nURFtoDLF = 20160 // phase 2 positions of the six corners URF..DLF
	nFRtoBR   = 11880 // positions and order of the four UD-slice edges
	nURtoUL   = 1320
	nUBtoDF   = 1320
	nURtoDF   = 20160 // phase 2 positions of the six edges UR..DF
	nMerge    = 336   // URtoUL and UBtoDF values with all edges outside the slice
	nMoves    = 18
)

func cnk(n, k int) int {
	if n < k {
		return 0
	}
	if k > n/2 {
		k = n - k
	}
	s := 1
	for i, j := n, 1; i != n-k; i, j = i-1, j+1 {
		s *= i
		s /= j
	}
	return s
}

func rotateLeft(a []int, l, r int) {
	tmp := a[l]
	for i := l; i < r; i++ {
		a[i] = a[i+1]
	}
	a[r] = tmp
}

func rotateRight(a []int, l, r int) {
	tmp := a[r]
	for i := r; i > l; i-- {
		a[i] = a[i-1]
	}
	a[l] = tmp
}

// permIndex ranks the order of pieces that were collected in ascending
// position order; base is the piece expected in slot 0.
func permIndex(pieces []int, base int) int {
	b := 0
	for j := len(pieces) - 1; j > 0; j-- {
		k := 0
		for pieces[j] != base+j {
			rotateLeft(pieces, 0, j)
			k++
		}
		b = (j+1)*b + k
	}
	return b
}

// unrankPerm is the inverse of permIndex applied to pieces in solved order.
func unrankPerm(pieces []int, b int) {
	for j := 1; j < len(pieces); j++ {
		k := b % (j + 1)
		b /= j + 1
		for ; k > 0; k-- {
			rotateRight(pieces, 0, j)
		}
	}
}

func (c *cubieCube) twist() int {
	ret := 0
	for i := URF; i < DRB; i++ {
		ret = 3*ret + c.co[i]
	}
	return ret
}

func (c *cubieCube) setTwist(twist int) {
	parity := 0
	for i := DRB - 1; i >= URF; i-- {
		c.co[i] = twist % 3
		parity += c.co[i]
		twist /= 3
	}
	c.co[DRB] = (3 - parity%3) % 3
}

func (c *cubieCube) flip() int {
	ret := 0
	for i := UR; i < BR; i++ {
		ret = 2*ret + c.eo[i]
	}
	return ret
}

func (c *cubieCube) setFlip(flip int) {
	parity := 0
	for i := BR - 1; i >= UR; i-- {
		c.eo[i] = flip % 2
		parity += c.eo[i]
		flip /= 2
	}
	c.eo[BR] = (2 - parity%2) % 2
}

// frToBR encodes where the slice edges FR, FL, BL, BR are and in which order.
// Values below 24 mean all four are inside the UD slice.
func (c *cubieCube) frToBR() int {
	a, x := 0, 0
	var edge4 [4]int
	for j := BR; j >= UR; j-- {
		if FR <= c.ep[j] && c.ep[j] <= BR {
			a += cnk(11-j, x+1)
			edge4[3-x] = c.ep[j]
			x++
		}
	}
	return 24*a + permIndex(edge4[:], FR)
}

func (c *cubieCube) setFRtoBR(idx int) {
	sliceEdge := []int{FR, FL, BL, BR}
	otherEdge := []int{UR, UF, UL, UB, DR, DF, DL, DB}
	unrankPerm(sliceEdge, idx%24)
	a := idx / 24
	for i := range c.ep {
		c.ep[i] = DB
	}
	x := 3
	for j := UR; j <= BR; j++ {
		if a-cnk(11-j, x+1) >= 0 {
			c.ep[j] = sliceEdge[3-x]
			a -= cnk(11-j, x+1)
			x--
		}
	}
	x = 0
	for j := UR; j <= BR; j++ {
		if c.ep[j] == DB {
			c.ep[j] = otherEdge[x]
			x++
		}
	}
}

func (c *cubieCube) urfToDLF() int {
	a, x := 0, 0
	var corner6 [6]int
	for j := URF; j <= DRB; j++ {
		if c.cp[j] <= DLF {
			a += cnk(j, x+1)
			corner6[x] = c.cp[j]
			x++
		}
	}
	return 720*a + permIndex(corner6[:], URF)
}

func (c *cubieCube) setURFtoDLF(idx int) {
	corner6 := []int{URF, UFL, ULB, UBR, DFR, DLF}
	otherCorner := []int{DBL, DRB}
	unrankPerm(corner6, idx%720)
	a := idx / 720
	for i := range c.cp {
		c.cp[i] = DRB
	}
	x := 5
	for j := DRB; j >= URF; j-- {
		if a-cnk(j, x+1) >= 0 {
			c.cp[j] = corner6[x]
			a -= cnk(j, x+1)
			x--
		}
	}
	x = 0
	for j := URF; j <= DRB; j++ {
		if c.cp[j] == DRB {
			c.cp[j] = otherCorner[x]
			x++
		}
	}
}

func (c *cubieCube) urToDF() int {
	a, x := 0, 0
	var edge6 [6]int
	for j := UR; j <= BR; j++ {
		if c.ep[j] <= DF {
			a += cnk(j, x+1)
			edge6[x] = c.ep[j]
			x++
		}
	}
	return 720*a + permIndex(edge6[:], UR)
}

func (c *cubieCube) setURtoDF(idx int) {
	edge6 := []int{UR, UF, UL, UB, DR, DF}
	otherEdge := []int{DL, DB, FR, FL, BL, BR}
	unrankPerm(edge6, idx%720)
	a := idx / 720
	for i := range c.ep {
		c.ep[i] = BR
	}
	x := 5
	for j := BR; j >= UR; j-- {
		if a-cnk(j, x+1) >= 0 {
			c.ep[j] = edge6[x]
			a -= cnk(j, x+1)
			x--
		}
	}
	x = 0
	for j := UR; j <= BR; j++ {
		if c.ep[j] == BR {
			c.ep[j] = otherEdge[x]
			x++
		}
	}
}

// threeEdges encodes the positions and order of the edges first..first+2.
func (c *cubieCube) threeEdges(first int) int {
	a, x := 0, 0
	var edge3 [3]int
	for j := UR; j <= BR; j++ {
		if first <= c.ep[j] && c.ep[j] <= first+2 {
			a += cnk(j, x+1)
			edge3[x] = c.ep[j]
			x++
		}
	}
	return 6*a + permIndex(edge3[:], first)
}

// setThreeEdges places edges first..first+2 and fills every other
// position with BR. The result is only meaningful for threeEdges.
func (c *cubieCube) setThreeEdges(first, idx int) {
	edge3 := []int{first, first + 1, first + 2}
	unrankPerm(edge3, idx%6)
	a := idx / 6
	for i := range c.ep {
		c.ep[i] = BR
	}
	x := 2
	for j := BR; j >= UR; j-- {
		if a-cnk(j, x+1) >= 0 {
			c.ep[j] = edge3[x]
			a -= cnk(j, x+1)
			x--
		}
	}
}

func (c *cubieCube) urToUL() int       { return c.threeEdges(UR) }
func (c *cubieCube) ubToDF() int       { return c.threeEdges(UB) }
func (c *cubieCube) setURtoUL(idx int) { c.setThreeEdges(UR, idx) }
func (c *cubieCube) setUBtoDF(idx int) { c.setThreeEdges(UB, idx) }

// mergeURtoDF combines the two three-edge coordinates into the six-edge
// phase 2 coordinate, or returns -1 when the two edge sets collide.
func mergeURtoDF(urToUL, ubToDF int) int {
	var a, b cubieCube
	a.setURtoUL(urToUL)
	b.setUBtoDF(ubToDF)
	for i := 0; i < 8; i++ {
		if a.ep[i] != BR {
			if b.ep[i] != BR {
				return -1
			}
			b.ep[i] = a.ep[i]
		}
	}
	return b.urToDF()
}
