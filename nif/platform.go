// Copyright 2024 The probeum/avm Authors
// This file is part of the avm library.
//
// The avm library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The avm library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the avm library. If not, see <http://www.gnu.org/licenses/>.

// Host-platform NIFs (cryptographic hashing, hardware/peripheral access,
// MAC/partition access) are out of scope: this file
// only registers their (module, function, arity) lookup keys behind the
// same registry interface, so resolution exercises the full BIF/NIF
// surface end-to-end without a real implementation backing these four.
package nif

import (
	"errors"

	"github.com/probeum/avm/atomtable"
	"github.com/probeum/avm/process"
	"github.com/probeum/avm/term"
)

// ErrUnsupportedNif names the registered-but-unimplemented NIF condition.
// The stubs below do not return it: they raise error:unsupported through
// the x0/x1 convention, same as an unsupported bitstring shape.
var ErrUnsupportedNif = errors.New("nif: unsupported (host-platform NIF out of scope)")

func (r *Registry) registerPlatformStubs() {
	r.registerNIF("crypto", "hash", 2, unsupportedNif)
	r.registerNIF("atomvm", "platform", 0, unsupportedNif)
	r.registerNIF("atomvm", "partition_erase", 1, unsupportedNif)
	r.registerNIF("network", "get_mac", 0, unsupportedNif)
}

func unsupportedNif(ctx *process.Context, args []term.Term) term.Term {
	return raiseError(ctx, term.FromAtom(atomtable.IDUnsupported))
}
