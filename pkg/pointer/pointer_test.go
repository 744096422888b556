// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package pointer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/yomira-auth/pkg/pointer"
)

/*
TestNonZero maps absent payload fields to nil.
*/
func TestNonZero(t *testing.T) {
	assert.Nil(t, pointer.NonZero(""))
	assert.Nil(t, pointer.NonZero(0))
	assert.Equal(t, "avatar.png", pointer.Val(pointer.NonZero("avatar.png")))
}

/*
TestVal returns the zero value for nil.
*/
func TestVal(t *testing.T) {
	var missing *string
	assert.Equal(t, "", pointer.Val(missing))
	assert.Equal(t, "Ann", pointer.Val(pointer.To("Ann")))
}
