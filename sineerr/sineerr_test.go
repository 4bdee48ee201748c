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

package sineerr

import (
	"testing"

	stderrors "errors"

	"github.com/stretchr/testify/assert"
)

func TestKindOfWrapped(t *testing.T) {
	cause := stderrors.New("boom")
	err := Wrap(KindTCFailure, cause, "push to %s", "node1")
	kind, ok := KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, KindTCFailure, kind)
	assert.Contains(t, err.Error(), "boom")
	assert.Contains(t, err.Error(), "node1")
}

func TestKindOfNew(t *testing.T) {
	err := New(KindConfiguration, "bad field %s", "mcs_table")
	kind, ok := KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, KindConfiguration, kind)
}

func TestKindOfPlainErrorIsFalse(t *testing.T) {
	_, ok := KindOf(stderrors.New("plain"))
	assert.False(t, ok)
}

func TestKindStrings(t *testing.T) {
	assert.Equal(t, "configuration", KindConfiguration.String())
	assert.Equal(t, "external_unavailable", KindExternalUnavailable.String())
	assert.Equal(t, "tc_failure", KindTCFailure.String())
	assert.Equal(t, "down", KindDown.String())
	assert.Equal(t, "shutdown", KindShutdown.String())
}
