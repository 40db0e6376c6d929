package dtype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/framecore/errors"
)

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	a, err := r.Register("double")
	require.NoError(t, err)
	again, err := r.Register("double")
	require.NoError(t, err)
	assert.Equal(t, a, again)

	b := r.MustRegister("float")
	assert.NotEqual(t, a, b)
	assert.Equal(t, "float", b.Name())

	found, ok := r.Lookup("double")
	assert.True(t, ok)
	assert.Equal(t, a, found)

	_, err = r.Register(" ")
	assert.True(t, errors.IsInvalid(err))
	assert.True(t, Type{}.IsNil())
}

func TestRegistry_ImplicitConversion(t *testing.T) {
	r := NewRegistry()
	i := r.MustRegister("int")
	d := r.MustRegister("double")

	assert.True(t, r.ImplicitlyConvertible(i, i))
	assert.False(t, r.ImplicitlyConvertible(i, d))

	r.AddImplicitConversion(i, d)
	assert.True(t, r.ImplicitlyConvertible(i, d))
	assert.False(t, r.ImplicitlyConvertible(d, i))
}

func TestConversionSequence(t *testing.T) {
	r := NewRegistry()
	i := r.MustRegister("int")
	s := r.MustRegister("string")
	b := r.MustRegister("bytes")

	seq := ConversionSequence{
		{Name: "to-string", From: i, To: s},
		{Name: "encode", From: s, To: b},
	}
	require.NoError(t, seq.Validate())
	assert.True(t, seq.Converts(i, b))
	assert.False(t, seq.Converts(s, b))
	assert.Equal(t, "to-string -> encode", seq.String())

	broken := ConversionSequence{
		{Name: "to-string", From: i, To: s},
		{Name: "bad", From: i, To: b},
	}
	assert.True(t, errors.IsInvalid(broken.Validate()))
	assert.False(t, broken.Converts(i, b))

	assert.True(t, ConversionSequence(nil).Empty())
	assert.True(t, ConversionSequence(nil).ResultType().IsNil())
}
