package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cartwright0/cartwright/internal/cart"
	"github.com/cartwright0/cartwright/internal/catalog"
	"github.com/cartwright0/cartwright/internal/config"
	"github.com/cartwright0/cartwright/internal/log"
	"github.com/cartwright0/cartwright/internal/search"
	"github.com/cartwright0/cartwright/internal/session"
)

func TestSetup_NilConfig(t *testing.T) {
	_, err := Setup(context.Background(), nil, log.NewNop(), Options{})
	if !errors.Is(err, config.ErrConfigNil) {
		t.Errorf("Setup(nil config) = %v, want ErrConfigNil", err)
	}
}

func TestProvideIndex_PostgresRequiresDatabase(t *testing.T) {
	a := &App{
		Config: &config.Config{IndexBackend: config.IndexPostgres},
		Logger: log.NewNop(),
	}

	_, err := provideIndex(context.Background(), a, Options{})
	if !errors.Is(err, config.ErrInvalidIndexBackend) {
		t.Errorf("provideIndex without pool = %v, want ErrInvalidIndexBackend", err)
	}
}

func TestProvideIndex_MemoryBackend(t *testing.T) {
	a := &App{
		Config: &config.Config{IndexBackend: config.IndexMemory, EmbedderDimension: 3},
		Logger: log.NewNop(),
	}

	index, err := provideIndex(context.Background(), a, Options{SkipIndexBuild: true})
	if err != nil {
		t.Fatalf("provideIndex: %v", err)
	}
	mem, ok := index.(*search.Index)
	if !ok {
		t.Fatalf("index type = %T, want *search.Index", index)
	}
	if mem.Available() {
		t.Error("skipped build should leave the index unavailable")
	}
}

func TestProvideIndex_BuildFailureIsNonFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := &App{
		Config:  &config.Config{IndexBackend: config.IndexMemory, EmbedderDimension: 3},
		Logger:  log.NewNop(),
		Catalog: catalog.New(srv.URL, time.Second),
	}

	index, err := provideIndex(context.Background(), a, Options{})
	if err != nil {
		t.Fatalf("provideIndex with failing catalog = %v, want nil", err)
	}
	if index.Available() {
		t.Error("failed build should leave the index unavailable")
	}
}

func TestProvideStores_MemoryWithoutPool(t *testing.T) {
	a := &App{Logger: log.NewNop()}

	if _, ok := provideCartStore(a).(*cart.MemoryStore); !ok {
		t.Errorf("cart store without pool = %T, want *cart.MemoryStore", provideCartStore(a))
	}
	if _, ok := provideSessionStore(a).(*session.MemoryStore); !ok {
		t.Errorf("session store without pool = %T, want *session.MemoryStore", provideSessionStore(a))
	}
}
