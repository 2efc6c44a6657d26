package prefetch_test

import (
	"context"
	"fmt"
	"strings"

	prefetch "github.com/luhtfiimanal/go-prefetch-archive"
)

func ExampleCache() {
	src := prefetch.SliceSource[string]{"alpha", "beta", "gamma", "delta"}

	cache, err := prefetch.New[string](src, prefetch.GobCodec[string]{}, 2, 2)
	if err != nil {
		panic(err)
	}
	defer cache.Close()

	ctx := context.Background()
	for idx := range cache.Size() {
		s, err := cache.Get(ctx, idx)
		if err != nil {
			panic(err)
		}
		fmt.Println(idx, strings.ToUpper(s))
	}
	// Output:
	// 0 ALPHA
	// 1 BETA
	// 2 GAMMA
	// 3 DELTA
}
