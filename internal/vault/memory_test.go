package vault

import (
	"bytes"
	"strings"
	"testing"
)

func TestMemoryVault(t *testing.T) {
	t.Run("put and get round trip", func(t *testing.T) {
		v := NewMemoryVault("test")

		data := "hello world"
		if err := v.PutArchive("backup.zip", strings.NewReader(data), int64(len(data))); err != nil {
			t.Fatalf("PutArchive() error = %v", err)
		}

		var buf bytes.Buffer
		if err := v.GetArchive("backup.zip", &buf); err != nil {
			t.Fatalf("GetArchive() error = %v", err)
		}
		if buf.String() != data {
			t.Errorf("archive = %q, want %q", buf.String(), data)
		}
	})

	t.Run("size mismatch", func(t *testing.T) {
		v := NewMemoryVault("test")

		err := v.PutArchive("backup.zip", strings.NewReader("hello"), 100)
		if err == nil {
			t.Error("PutArchive() expected size mismatch error")
		}
	})

	t.Run("archive not found", func(t *testing.T) {
		v := NewMemoryVault("test")

		var buf bytes.Buffer
		if err := v.GetArchive("nonexistent.zip", &buf); err == nil {
			t.Error("GetArchive() expected error for nonexistent archive")
		}
	})

	t.Run("lists archives sorted", func(t *testing.T) {
		v := NewMemoryVault("test")

		for _, name := range []string{"b.zip", "a.zip"} {
			if err := v.PutArchive(name, strings.NewReader("x"), 1); err != nil {
				t.Fatalf("PutArchive(%s) error = %v", name, err)
			}
		}

		names, err := v.ListArchives()
		if err != nil {
			t.Fatalf("ListArchives() error = %v", err)
		}
		if len(names) != 2 || names[0] != "a.zip" || names[1] != "b.zip" {
			t.Errorf("names = %v, want [a.zip b.zip]", names)
		}
	})

	t.Run("validate setup always succeeds", func(t *testing.T) {
		v := NewMemoryVault("test")
		if err := v.ValidateSetup(); err != nil {
			t.Errorf("ValidateSetup() error = %v", err)
		}
	})
}
