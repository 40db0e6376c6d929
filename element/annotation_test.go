package element_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/framecore/element"
	"github.com/c360/framecore/errors"
)

type parameterList struct {
	values      map[string]string
	initialized int
	toBeDeleted int
	destroyed   int
}

func (p *parameterList) AnnotatedObjectInitialized(*element.Element) { p.initialized++ }
func (p *parameterList) AnnotatedObjectToBeDeleted(*element.Element) { p.toBeDeleted++ }
func (p *parameterList) AnnotatedObjectDestroyed(*element.Element)   { p.destroyed++ }

type description struct {
	text string
}

func TestAnnotations_Lifecycle(t *testing.T) {
	rt, r := newRuntime(t)
	e := mustNew(t, rt.Root(), "Module", 0)
	params := &parameterList{values: map[string]string{"rate": "10"}}

	require.NoError(t, element.Annotate(e, params))
	assert.Same(t, params, element.GetAnnotation[parameterList](e))
	assert.Nil(t, element.GetAnnotation[description](e))

	e.Init()
	assert.Equal(t, 1, params.initialized)

	e.ManagedDelete()
	assert.Equal(t, 1, params.toBeDeleted)
	assert.Equal(t, 0, params.destroyed)
	stepPastSafetyInterval(r)
	assert.Equal(t, 1, params.destroyed)

	assert.ErrorIs(t, element.Annotate(e, &description{}), errors.ErrElementDeleted)
}

func TestAnnotations_OnePerType(t *testing.T) {
	rt, _ := newRuntime(t)
	e := mustNew(t, rt.Root(), "Module", 0)

	require.NoError(t, element.Annotate(e, &description{text: "first"}))
	err := element.Annotate(e, &description{text: "second"})
	assert.ErrorIs(t, err, errors.ErrAnnotationExists)
	assert.True(t, errors.IsInvalid(err))
	assert.Equal(t, "first", element.GetAnnotation[description](e).text)
}

func TestAnnotations_LateAnnotationSeesReadyElement(t *testing.T) {
	rt, _ := newRuntime(t)
	e := mustNew(t, rt.Root(), "Module", 0)
	e.Init()

	params := &parameterList{}
	require.NoError(t, element.Annotate(e, params))
	assert.Equal(t, 1, params.initialized)
}

func TestFindAnnotation_WalksUp(t *testing.T) {
	rt, _ := newRuntime(t)
	group := mustNew(t, rt.Root(), "Group", 0)
	leaf := mustNew(t, mustNew(t, group, "Inner", 0), "Leaf", 0)

	d := &description{text: "group"}
	require.NoError(t, element.Annotate(group, d))
	assert.Same(t, d, element.FindAnnotation[description](leaf))
	assert.Nil(t, element.FindAnnotation[parameterList](leaf))
}
