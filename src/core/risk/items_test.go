package risk

import (
	"reflect"
	"sort"
	"testing"

	"ip-risk-server-go/src/core/types"
)

func TestNormalizeDetectedItems(t *testing.T) {
	t.Run("去重并排除聚合文本", func(t *testing.T) {
		ann := &types.Annotation{
			Logos: []string{"Nike", "nike"},
			Texts: []string{"NIKE AIR", "nike", "air"},
		}
		got := NormalizeDetectedItems(ann, DefaultSentinel)
		sorted := append([]string(nil), got...)
		sort.Strings(sorted)
		if want := []string{"air", "nike"}; !reflect.DeepEqual(sorted, want) {
			t.Errorf("NormalizeDetectedItems() = %v, want %v", got, want)
		}
	})

	t.Run("只有logo", func(t *testing.T) {
		ann := &types.Annotation{Logos: []string{"Adidas", "Puma"}}
		got := NormalizeDetectedItems(ann, DefaultSentinel)
		if want := []string{"adidas", "puma"}; !reflect.DeepEqual(got, want) {
			t.Errorf("NormalizeDetectedItems() = %v, want %v", got, want)
		}
	})

	t.Run("只有聚合文本", func(t *testing.T) {
		ann := &types.Annotation{Texts: []string{"JUST DO IT"}}
		got := NormalizeDetectedItems(ann, DefaultSentinel)
		if want := []string{DefaultSentinel}; !reflect.DeepEqual(got, want) {
			t.Errorf("NormalizeDetectedItems() = %v, want %v", got, want)
		}
	})

	t.Run("没有任何标注", func(t *testing.T) {
		got := NormalizeDetectedItems(&types.Annotation{}, DefaultSentinel)
		if want := []string{"no detected logos or text"}; !reflect.DeepEqual(got, want) {
			t.Errorf("NormalizeDetectedItems() = %v, want %v", got, want)
		}
	})

	t.Run("空白标签被忽略", func(t *testing.T) {
		ann := &types.Annotation{Logos: []string{"  "}, Texts: []string{"X", " ", "\tApple "}}
		got := NormalizeDetectedItems(ann, DefaultSentinel)
		if want := []string{"apple"}; !reflect.DeepEqual(got, want) {
			t.Errorf("NormalizeDetectedItems() = %v, want %v", got, want)
		}
	})
}

func TestBuildPrompt(t *testing.T) {
	p := DefaultPolicy()

	textOnly := p.BuildPrompt("Creating a similar logo to Nike", nil, false)
	want := DefaultInstruction + "\nInput: Creating a similar logo to Nike"
	if textOnly != want {
		t.Errorf("BuildPrompt(text) = %q, want %q", textOnly, want)
	}

	both := p.BuildPrompt("my shoe design", []string{"nike", "air"}, true)
	want = DefaultInstruction + "\nDetected logos and text in the image: nike, air\nInput: my shoe design"
	if both != want {
		t.Errorf("BuildPrompt(both) = %q, want %q", both, want)
	}

	imageOnly := p.BuildPrompt("", []string{DefaultSentinel}, true)
	want = DefaultInstruction + "\nDetected logos and text in the image: " + DefaultSentinel
	if imageOnly != want {
		t.Errorf("BuildPrompt(image) = %q, want %q", imageOnly, want)
	}
}
