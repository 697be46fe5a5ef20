package bind

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

type Address struct {
	City string `fleece:"city"`
	Zip  string `fleece:"zip"`
}

type Person struct {
	Name    string   `fleece:"name"`
	Age     int      `fleece:"age"`
	Tags    []string `fleece:"tags"`
	Address Address  `fleece:"address"`
	secret  string   //nolint:unused
}

func TestEncodeDecodeStruct(t *testing.T) {
	in := Person{
		Name: "Ada",
		Age:  36,
		Tags: []string{"math", "engineering"},
		Address: Address{
			City: "London",
			Zip:  "W1",
		},
	}

	buf, err := Encode(&in)
	require.NoError(t, err)

	var out Person
	require.NoError(t, Decode(buf, &out))

	require.Equal(t, in.Name, out.Name)
	require.Equal(t, in.Age, out.Age)
	require.Equal(t, in.Tags, out.Tags)
	require.Equal(t, in.Address, out.Address)
}

func TestPlanIsCachedAcrossCalls(t *testing.T) {
	b := NewBinder()
	_, err := b.Encode(&Person{Name: "first"})
	require.NoError(t, err)

	b.mu.RLock()
	plan1, ok := b.plan[reflect.TypeOf(Person{})]
	b.mu.RUnlock()
	require.True(t, ok)

	_, err = b.Encode(&Person{Name: "second"})
	require.NoError(t, err)

	b.mu.RLock()
	plan2 := b.plan[reflect.TypeOf(Person{})]
	b.mu.RUnlock()

	require.Same(t, plan1, plan2)
}

func TestEncodeValueGenericTree(t *testing.T) {
	doc := map[string]any{
		"name":  "Ada",
		"count": float64(3),
		"ratio": 1.5,
		"items": []any{"a", "b"},
	}
	buf, err := EncodeValue(doc)
	require.NoError(t, err)
	require.NotEmpty(t, buf)
}
