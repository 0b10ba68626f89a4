package solver

import (
	"fmt"
	"strings"
)

// Face letters in facelet order. A facelet string lists the nine stickers of
// each face in this order, each face read left to right, top to bottom.
const faceLetters = "URFDLB"

const (
	faceU = iota
	faceR
	faceF
	faceD
	faceL
	faceB
)

// Corner positions.
const (
	URF = iota
	UFL
	ULB
	UBR
	DFR
	DLF
	DBL
	DRB
)

// Edge positions.
const (
	UR = iota
	UF
	UL
	UB
	DR
	DF
	DL
	DB
	FR
	FL
	BL
	BR
)

// Facelet index of the first sticker of each face.
const (
	fU = faceU * 9
	fR = faceR * 9
	fF = faceF * 9
	fD = faceD * 9
	fL = faceL * 9
	fB = faceB * 9
)

var cornerFacelet = [8][3]int{
	URF: {fU + 8, fR + 0, fF + 2},
	UFL: {fU + 6, fF + 0, fL + 2},
	ULB: {fU + 0, fL + 0, fB + 2},
	UBR: {fU + 2, fB + 0, fR + 2},
	DFR: {fD + 2, fF + 8, fR + 6},
	DLF: {fD + 0, fL + 8, fF + 6},
	DBL: {fD + 6, fB + 8, fL + 6},
	DRB: {fD + 8, fR + 8, fB + 6},
}

var edgeFacelet = [12][2]int{
	UR: {fU + 5, fR + 1},
	UF: {fU + 7, fF + 1},
	UL: {fU + 3, fL + 1},
	UB: {fU + 1, fB + 1},
	DR: {fD + 5, fR + 7},
	DF: {fD + 1, fF + 7},
	DL: {fD + 3, fL + 7},
	DB: {fD + 7, fB + 7},
	FR: {fF + 5, fR + 3},
	FL: {fF + 3, fL + 5},
	BL: {fB + 5, fL + 3},
	BR: {fB + 3, fR + 5},
}

var cornerColor = [8][3]int{
	URF: {faceU, faceR, faceF},
	UFL: {faceU, faceF, faceL},
	ULB: {faceU, faceL, faceB},
	UBR: {faceU, faceB, faceR},
	DFR: {faceD, faceF, faceR},
	DLF: {faceD, faceL, faceF},
	DBL: {faceD, faceB, faceL},
	DRB: {faceD, faceR, faceB},
}

var edgeColor = [12][2]int{
	UR: {faceU, faceR},
	UF: {faceU, faceF},
	UL: {faceU, faceL},
	UB: {faceU, faceB},
	DR: {faceD, faceR},
	DF: {faceD, faceF},
	DL: {faceD, faceL},
	DB: {faceD, faceB},
	FR: {faceF, faceR},
	FL: {faceF, faceL},
	BL: {faceB, faceL},
	BR: {faceB, faceR},
}

// cubieCube describes a cube by the permutation and orientation of its
// corner and edge pieces. cp[i] is the corner occupying position i.
type cubieCube struct {
	cp [8]int
	co [8]int
	ep [12]int
	eo [12]int
}

func solvedCube() cubieCube {
	var c cubieCube
	for i := range c.cp {
		c.cp[i] = i
	}
	for i := range c.ep {
		c.ep[i] = i
	}
	return c
}

// moveCubes holds the clockwise quarter turn of each face, in faceLetters order.
var moveCubes = [6]cubieCube{
	faceU: {
		cp: [8]int{UBR, URF, UFL, ULB, DFR, DLF, DBL, DRB},
		ep: [12]int{UB, UR, UF, UL, DR, DF, DL, DB, FR, FL, BL, BR},
	},
	faceR: {
		cp: [8]int{DFR, UFL, ULB, URF, DRB, DLF, DBL, UBR},
		co: [8]int{2, 0, 0, 1, 1, 0, 0, 2},
		ep: [12]int{FR, UF, UL, UB, BR, DF, DL, DB, DR, FL, BL, UR},
	},
	faceF: {
		cp: [8]int{UFL, DLF, ULB, UBR, URF, DFR, DBL, DRB},
		co: [8]int{1, 2, 0, 0, 2, 1, 0, 0},
		ep: [12]int{UR, FL, UL, UB, DR, FR, DL, DB, UF, DF, BL, BR},
		eo: [12]int{0, 1, 0, 0, 0, 1, 0, 0, 1, 1, 0, 0},
	},
	faceD: {
		cp: [8]int{URF, UFL, ULB, UBR, DLF, DBL, DRB, DFR},
		ep: [12]int{UR, UF, UL, UB, DF, DL, DB, DR, FR, FL, BL, BR},
	},
	faceL: {
		cp: [8]int{URF, ULB, DBL, UBR, DFR, UFL, DLF, DRB},
		co: [8]int{0, 1, 2, 0, 0, 2, 1, 0},
		ep: [12]int{UR, UF, BL, UB, DR, DF, FL, DB, FR, UL, DL, BR},
	},
	faceB: {
		cp: [8]int{URF, UFL, UBR, DRB, DFR, DLF, ULB, DBL},
		co: [8]int{0, 0, 1, 2, 0, 0, 2, 1},
		ep: [12]int{UR, UF, UL, BR, DR, DF, DL, BL, FR, FL, UB, DB},
		eo: [12]int{0, 0, 0, 1, 0, 0, 0, 1, 0, 0, 1, 1},
	},
}

// cubieFromFacelets maps a facelet string onto pieces. The string must
// already have passed Validate.
func cubieFromFacelets(facelets string) cubieCube {
	var f [54]int
	for i := 0; i < len(f); i++ {
		f[i] = strings.IndexByte(faceLetters, facelets[i])
	}

	var c cubieCube
	for i := range c.cp {
		c.cp[i] = -1
		ori := 0
		for ori = 0; ori < 3; ori++ {
			if col := f[cornerFacelet[i][ori]]; col == faceU || col == faceD {
				break
			}
		}
		col1 := f[cornerFacelet[i][(ori+1)%3]]
		col2 := f[cornerFacelet[i][(ori+2)%3]]
		for j := range cornerColor {
			if col1 == cornerColor[j][1] && col2 == cornerColor[j][2] {
				c.cp[i] = j
				c.co[i] = ori % 3
				break
			}
		}
	}

	for i := range c.ep {
		c.ep[i] = -1
		for j := range edgeColor {
			a, b := f[edgeFacelet[i][0]], f[edgeFacelet[i][1]]
			if a == edgeColor[j][0] && b == edgeColor[j][1] {
				c.ep[i] = j
				c.eo[i] = 0
				break
			}
			if a == edgeColor[j][1] && b == edgeColor[j][0] {
				c.ep[i] = j
				c.eo[i] = 1
				break
			}
		}
	}
	return c
}

func (c *cubieCube) facelets() string {
	var f [54]byte
	for face := 0; face < 6; face++ {
		f[face*9+4] = faceLetters[face]
	}
	for i := range c.cp {
		j, ori := c.cp[i], c.co[i]
		for n := 0; n < 3; n++ {
			f[cornerFacelet[i][(n+ori)%3]] = faceLetters[cornerColor[j][n]]
		}
	}
	for i := range c.ep {
		j, ori := c.ep[i], c.eo[i]
		for n := 0; n < 2; n++ {
			f[edgeFacelet[i][(n+ori)%2]] = faceLetters[edgeColor[j][n]]
		}
	}
	return string(f[:])
}

// multiply replaces c with the product c*b, i.e. applies b after c.
func (c *cubieCube) multiply(b *cubieCube) {
	c.cornerMultiply(b)
	c.edgeMultiply(b)
}

func (c *cubieCube) cornerMultiply(b *cubieCube) {
	var cp, co [8]int
	for i := range cp {
		cp[i] = c.cp[b.cp[i]]
		co[i] = (c.co[b.cp[i]] + b.co[i]) % 3
	}
	c.cp, c.co = cp, co
}

func (c *cubieCube) edgeMultiply(b *cubieCube) {
	var ep, eo [12]int
	for i := range ep {
		ep[i] = c.ep[b.ep[i]]
		eo[i] = (c.eo[b.ep[i]] + b.eo[i]) % 2
	}
	c.ep, c.eo = ep, eo
}

func (c *cubieCube) cornerParity() int {
	s := 0
	for i := DRB; i > URF; i-- {
		for j := i - 1; j >= URF; j-- {
			if c.cp[j] > c.cp[i] {
				s++
			}
		}
	}
	return s % 2
}

func (c *cubieCube) edgeParity() int {
	s := 0
	for i := BR; i > UR; i-- {
		for j := i - 1; j >= UR; j-- {
			if c.ep[j] > c.ep[i] {
				s++
			}
		}
	}
	return s % 2
}

// verify checks that the pieces form a reachable cube.
func (c *cubieCube) verify() error {
	var edgeCount [12]int
	for _, e := range c.ep {
		if e < 0 {
			return fmt.Errorf("%w: an edge has no matching piece", ErrSolver)
		}
		edgeCount[e]++
	}
	for _, n := range edgeCount {
		if n != 1 {
			return fmt.Errorf("%w: not all 12 edges exist exactly once", ErrSolver)
		}
	}
	flip := 0
	for _, o := range c.eo {
		flip += o
	}
	if flip%2 != 0 {
		return fmt.Errorf("%w: flip error, one edge has to be flipped", ErrSolver)
	}

	var cornerCount [8]int
	for _, p := range c.cp {
		if p < 0 {
			return fmt.Errorf("%w: a corner has no matching piece", ErrSolver)
		}
		cornerCount[p]++
	}
	for _, n := range cornerCount {
		if n != 1 {
			return fmt.Errorf("%w: not all 8 corners exist exactly once", ErrSolver)
		}
	}
	twist := 0
	for _, o := range c.co {
		twist += o
	}
	if twist%3 != 0 {
		return fmt.Errorf("%w: twist error, one corner has to be twisted", ErrSolver)
	}

	if c.edgeParity() != c.cornerParity() {
		return fmt.Errorf("%w: parity error, two corners or two edges have to be exchanged", ErrSolver)
	}
	return nil
}

func (c *cubieCube) isSolved() bool {
	return *c == solvedCube()
}
