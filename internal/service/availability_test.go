package service

import (
	"bytes"
	"log/slog"
	"math/rand/v2"
	"testing"

	"github.com/Shivanand-hulikatti/event-ticketing/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestComputeAvailable(t *testing.T) {
	tests := []struct {
		name       string
		capacity   int
		quantities []int
		want       int
	}{
		{"no bookings", 10, nil, 10},
		{"partially sold", 10, []int{1, 2}, 7},
		{"exactly sold out", 5, []int{2, 3}, 0},
		{"zero capacity", 0, nil, 0},
		{"zero capacity with bookings", 0, []int{1}, 0},
		{"oversold clamps to zero", 1, []int{1, 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeAvailable(tt.capacity, tt.quantities, nil))
		})
	}
}

func TestComputeAvailable_Invariant(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for range 1000 {
		capacity := rng.IntN(200)
		quantities := make([]int, rng.IntN(20))
		sum := 0
		for i := range quantities {
			quantities[i] = 1 + rng.IntN(20)
			sum += quantities[i]
		}

		got := ComputeAvailable(capacity, quantities, nil)

		assert.Equal(t, max(capacity-sum, 0), got)
		assert.GreaterOrEqual(t, got, 0)
		assert.Equal(t, got, ComputeAvailable(capacity, quantities, nil), "same snapshot, same answer")
	}
}

func TestComputeAvailable_MalformedQuantitiesExcludedAndLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	got := ComputeAvailable(10, []int{2, 0, -4, 3}, logger)

	assert.Equal(t, 5, got)
	assert.Contains(t, buf.String(), "malformed booking quantity")
	assert.Contains(t, buf.String(), "quantity=-4")
	assert.Contains(t, buf.String(), "quantity=0")
}

func TestViewOf(t *testing.T) {
	e := model.Event{ID: "e1", Capacity: 4}
	bookings := []model.Booking{{Quantity: 1}, {Quantity: 2}}

	v := viewOf(e, bookings, nil)

	assert.Equal(t, 3, v.Sold)
	assert.Equal(t, 1, v.Available)
	assert.Equal(t, "e1", v.ID)
}
