// Copyright (c) 2020-2023, The OTNS Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

package tcsynth

import (
	"fmt"
	"os/exec"

	"github.com/pkg/errors"
)

// NetnsApplier runs each Command via `ip netns exec <ns> tc <args...>`,
// following the `[]string` argv-building idiom used for tc invocation
// throughout the pack (grounded on the chaos-injection tc wrapper's
// command-building style).
type NetnsApplier struct {
	// Namespace maps a node name to its container network namespace name.
	Namespace map[string]string
}

func (a NetnsApplier) Apply(node string, prog Program) error {
	ns, ok := a.Namespace[node]
	if !ok {
		return errors.Errorf("no network namespace recorded for node %s", node)
	}
	for _, cmd := range prog.Commands {
		args := append([]string{"netns", "exec", ns, "tc"}, cmd.Args...)
		out, err := exec.Command("ip", args...).CombinedOutput()
		if err != nil {
			return errors.Wrapf(err, "tc %v failed: %s", cmd.Args, string(out))
		}
	}
	return nil
}

// NullApplier records every Program without executing it; used by tests
// that only want to inspect the synthesized Program.
type NullApplier struct {
	Applied []Program
}

func (a *NullApplier) Apply(node string, prog Program) error {
	a.Applied = append(a.Applied, prog)
	return nil
}

var _ fmt.Stringer = programStringer{}

type programStringer struct{ Program }

func (p programStringer) String() string {
	s := p.Iface + ":\n"
	for _, c := range p.Commands {
		s += "  tc"
		for _, a := range c.Args {
			s += " " + a
		}
		s += "\n"
	}
	return s
}

// String renders a Program as a sequence of `tc ...` lines, useful for
// deploy-failure reports (§7: "multi-line report listing which links
// failed and why").
func (p Program) String() string {
	return programStringer{p}.String()
}
