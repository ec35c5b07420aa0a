package snippets

import (
	"slices"
	"testing"

	"github.com/cpp4you/snippetexec/annotate"
	"github.com/cpp4you/snippetexec/snippet"
)

func TestBundledCollectionLoads(t *testing.T) {
	store, err := snippet.LoadFS(FS, snippet.LoadOptions{})
	if err != nil {
		t.Fatalf("LoadFS() error = %v", err)
	}

	want := []string{
		"sort-array-cpp20",
		"simple-player-struct-cpp20",
		"reverse-words-in-string-cpp23",
		"fizzbuzz",
		"read-file",
		"sorting",
	}
	if got := store.IDs(); !slices.Equal(got, want) {
		t.Errorf("IDs() = %v, want %v", got, want)
	}
	for s := range store.All() {
		if len(s.Warnings) != 0 {
			t.Errorf("%s: warnings %v", s.ID, s.Warnings)
		}
	}
}

func TestBundledAnnotations(t *testing.T) {
	store, err := snippet.LoadFS(FS, snippet.LoadOptions{})
	if err != nil {
		t.Fatalf("LoadFS() error = %v", err)
	}

	player, err := store.Load("simple-player-struct-cpp20")
	if err != nil {
		t.Fatal(err)
	}
	if player.Language != snippet.LangCpp20 {
		t.Errorf("player language = %s", player.Language)
	}
	if len(player.Annotations) != 1 || player.Annotations[0].Kind != annotate.PushType || player.Annotations[0].Payload != "Player" {
		t.Errorf("player annotations = %+v", player.Annotations)
	}

	sorting, err := store.Load("sorting")
	if err != nil {
		t.Fatal(err)
	}
	if len(sorting.Annotations) != 1 || sorting.Annotations[0].Kind != annotate.HighlightLine || sorting.Annotations[0].Line != 8 {
		t.Errorf("sorting annotations = %+v", sorting.Annotations)
	}
	if sorting.Language != snippet.LangCpp20 {
		t.Errorf("sorting language = %s, want cpp20 from file stem", sorting.Language)
	}

	readFile, err := store.Load("read-file")
	if err != nil {
		t.Fatal(err)
	}
	if readFile.Runnable {
		t.Error("read-file is runnable, want static")
	}
}
