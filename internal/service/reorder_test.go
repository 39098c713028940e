package service_test

import (
	"fmt"
	"slices"
	"testing"

	"opsdash/internal/domain"
	"opsdash/internal/service"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func widgets(n int) []domain.WidgetDescriptor {
	out := make([]domain.WidgetDescriptor, n)
	for i := range out {
		out[i] = domain.WidgetDescriptor{
			ID:      fmt.Sprintf("w%d", i),
			Type:    domain.WidgetBlockers,
			Size:    domain.WidgetSizeMedium,
			Order:   i * 10, // sparse on purpose
			Visible: true,
		}
	}
	return out
}

func ids(ws []domain.WidgetDescriptor) []string {
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = w.ID
	}
	return out
}

func TestMoveWidget_ListMoveNotSwap(t *testing.T) {
	in := widgets(5)

	out, moved := service.MoveWidget(in, 1, 3)

	require.True(t, moved)
	assert.Equal(t, []string{"w0", "w2", "w3", "w1", "w4"}, ids(out))
	for i, w := range out {
		assert.Equal(t, i, w.Order)
	}
	assert.Equal(t, []string{"w0", "w1", "w2", "w3", "w4"}, ids(in), "input must not be modified")
	assert.Equal(t, 10, in[1].Order)
}

func TestMoveWidget_SameIndexIsNoop(t *testing.T) {
	in := widgets(4)

	out, moved := service.MoveWidget(in, 2, 2)

	assert.False(t, moved)
	assert.Equal(t, in, out)
}

func TestMoveWidget_ClampsOutOfRange(t *testing.T) {
	out, moved := service.MoveWidget(widgets(4), 0, 99)
	require.True(t, moved)
	assert.Equal(t, []string{"w1", "w2", "w3", "w0"}, ids(out))

	out, moved = service.MoveWidget(widgets(4), -5, 2)
	require.True(t, moved)
	assert.Equal(t, []string{"w1", "w2", "w0", "w3"}, ids(out))

	_, moved = service.MoveWidget(widgets(4), 10, 3)
	assert.False(t, moved, "clamped indices that coincide are a no-op")

	_, moved = service.MoveWidget(nil, 0, 1)
	assert.False(t, moved)
}

func TestMoveWidget_Properties(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 300
	properties := gopter.NewProperties(params)

	properties.Property("ids are preserved and order is a dense permutation", prop.ForAll(
		func(n, src, dst int) bool {
			in := widgets(n)
			out, moved := service.MoveWidget(in, src, dst)
			if len(out) != n {
				return false
			}
			got, want := ids(out), ids(in)
			slices.Sort(got)
			slices.Sort(want)
			if !slices.Equal(got, want) {
				return false
			}
			if !moved {
				return true
			}
			for i, w := range out {
				if w.Order != i {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 12),
		gen.IntRange(-3, 15),
		gen.IntRange(-3, 15),
	))

	properties.Property("moved element lands at the clamped target", prop.ForAll(
		func(n, src, dst int) bool {
			in := widgets(n)
			out, moved := service.MoveWidget(in, src, dst)
			if !moved {
				return true
			}
			clamp := func(i int) int { return max(0, min(i, n-1)) }
			return out[clamp(dst)].ID == in[clamp(src)].ID
		},
		gen.IntRange(1, 12),
		gen.IntRange(-3, 15),
		gen.IntRange(-3, 15),
	))

	properties.Property("same index never moves", prop.ForAll(
		func(n, i int) bool {
			_, moved := service.MoveWidget(widgets(n), i, i)
			return !moved
		},
		gen.IntRange(0, 12),
		gen.IntRange(-3, 15),
	))

	properties.TestingRun(t)
}
