// This file is part of libTAS.
//
// libTAS is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// libTAS is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with libTAS.  If not, see <https://www.gnu.org/licenses/>.

// Package curated is a helper package for the plain Go language error type.
// Curated errors implement the error interface.
//
// Curated errors are created with the Errorf() function. This is similar to
// the Errorf() function in the fmt package. It takes a formatting pattern,
// placeholder values and returns an error.
//
// The Is() function can be used to check whether an error was created with a
// specific pattern. The pattern is what differentiates curated errors. For
// example:
//
//	e := curated.Errorf("savestate: no state in slot %d", slot)
//
//	if curated.Is(e, "savestate: no state in slot %d") {
//		fmt.Println("true")
//	}
//
// The Has() function is similar but checks if a pattern occurs somewhere in
// the error chain, not just at the head. The IsAny() function answers whether
// the error was created by curated.Errorf() at all. We can think of the
// difference between curated and uncurated errors as the difference between
// 'expected' and 'unexpected' errors, depending on how we choose to handle
// the result of a function call.
//
// The Error() function implementation for curated errors normalises the error
// chain, removing duplicate adjacent parts. This alleviates the problem of
// when and how to wrap errors as they percolate up through the layers of the
// program: wrapping at every level will not produce a message like
//
//	savestate: savestate: no state in slot 2
//
// For the purposes of this package, chains are composed of parts separated by
// the sub-string ': ' as suggested on p239 of "The Go Programming Language"
// (Donovan, Kernighan).
//
// There is no special provision for sentinel errors but they are achievable
// in practice through the use of the Is() and Has() functions. Sentinel
// patterns should be stored as a const string, suitably named and commented.
// The savestate package uses this arrangement for every outcome of the
// save/load protocol.
package curated
