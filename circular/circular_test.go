package circular

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuffer(t *testing.T) {
	cases := []struct {
		size int
		in   []int
		want []int
	}{
		{1, []int{1, 2, 3}, []int{3}},
		{2, []int{1, 2, 3}, []int{2, 3}},
		{3, []int{1, 2, 3}, []int{1, 2, 3}},
		{4, []int{1, 2, 3}, []int{1, 2, 3}},
		{0, []int{7}, []int{7}},
	}

	for _, c := range cases {
		t.Run(fmt.Sprintf("size=%d", c.size), func(t *testing.T) {
			b := CreateBuffer[int](c.size)
			b.Enqueue(c.in...)
			assert.Equal(t, c.want, b.Retrieve(nil))
			assert.Equal(t, len(c.want), b.Count())
		})
	}
}

func TestBufferWrapsOneAtATime(t *testing.T) {
	assert := assert.New(t)
	b := CreateBuffer[float64](3)
	for i := 1; i <= 7; i++ {
		b.Enqueue(float64(i))
	}

	assert.True(b.Full())
	assert.Equal([]float64{5, 6, 7}, b.Retrieve(nil))
	assert.Equal(5.0, *b.At(0))
	assert.Equal(7.0, *b.Last())
	assert.Nil(b.At(3))
}

func TestBufferRetrieveReusesSlice(t *testing.T) {
	b := CreateBuffer[int](4)
	b.Enqueue(1, 2)
	scratch := make([]int, 0, 4)
	got := b.Retrieve(scratch[:0])
	assert.Equal(t, []int{1, 2}, got)
	assert.Equal(t, 4, cap(got))
}

func TestBufferReset(t *testing.T) {
	assert := assert.New(t)
	b := CreateBuffer[int](2)
	b.Enqueue(1, 2, 3)
	b.Reset()

	assert.Equal(0, b.Count())
	assert.Nil(b.Last())
	assert.Empty(b.Retrieve(nil))

	b.Enqueue(9)
	assert.Equal([]int{9}, b.Retrieve(nil))
}
