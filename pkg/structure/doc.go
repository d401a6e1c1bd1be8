// Package structure draws 2-D depictions of chemical structures given as
// SMILES strings.
//
// Rendering is split in three steps. [Parse] reads SMILES into a
// [Molecule] and derives implicit hydrogen counts. The molecule is then
// laid out with stress majorization: every atom pair gets an ideal
// distance (bond length for bonded atoms, polygon chords inside rings, a
// zig-zag chain estimate otherwise) and positions are refined from a
// fixed seed, so repeated renders are identical. Finally a [Depiction]
// scales the drawing into a target box and writes it as SVG with
// ajstarks/svgo.
//
// Parse failures are reported as [*ParseError] and never panic; callers
// in the diagram layer log them and leave the node empty.
package structure
