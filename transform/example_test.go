package transform_test

import (
	"context"
	"fmt"

	"github.com/jonwraymond/thumbnails/repository"
	"github.com/jonwraymond/thumbnails/transform"
)

func ExampleEscapeName() {
	fmt.Println(transform.EscapeName("#O'Brien"))
	// Output: O''Brien
}

func ExampleService_Transformation() {
	ctx := context.Background()
	store, _ := repository.NewStore(repository.StoreConfig{Backend: repository.NewMemoryBackend()})
	_ = repository.Seed(ctx, store, []*repository.Node{
		{Path: "/conf/global/small", ResourceType: transform.ResourceType, Properties: map[string]any{"name": "small"}},
		{Path: "/conf/global/small/resize", Properties: map[string]any{"handlerType": "resize", "width": 128}},
	})

	user, _ := transform.NewServiceUser(transform.ServiceUserConfig{Repository: store})
	svc, _ := transform.NewService(transform.ServiceConfig{Opener: user})

	caller, _ := store.Login(ctx, repository.Credentials{})
	defer caller.Close()

	t, ok, err := svc.Transformation(ctx, caller, "#small")
	fmt.Println(ok, err)
	fmt.Println(t.Path, t.Handlers[0].Type, t.Handlers[0].Properties["width"])
	// Output:
	// true <nil>
	// /conf/global/small resize 128
}
