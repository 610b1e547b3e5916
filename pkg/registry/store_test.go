package registry

import (
	"errors"
	"testing"
)

// testStoreContract 对任意 Store 实现执行相同的一组检查
func testStoreContract(t *testing.T, store Store) {
	t.Run("GetNotFound", func(t *testing.T) {
		if _, err := store.Get("g/v1/things/default/missing"); !errors.Is(err, ErrKeyNotFound) {
			t.Errorf("Expected ErrKeyNotFound, but got: %v", err)
		}
	})

	t.Run("PutAndGet", func(t *testing.T) {
		if err := store.Put("g/v1/things/default/a", []byte(`{"name":"a"}`)); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		data, err := store.Get("g/v1/things/default/a")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if string(data) != `{"name":"a"}` {
			t.Errorf("Unexpected data: %s", data)
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		if err := store.Put("g/v1/things/default/a", []byte(`{"name":"a","v":2}`)); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		data, _ := store.Get("g/v1/things/default/a")
		if string(data) != `{"name":"a","v":2}` {
			t.Errorf("Overwrite was not persisted: %s", data)
		}
	})

	t.Run("ListByPrefix", func(t *testing.T) {
		for _, key := range []string{
			"g/v1/things/default/b",
			"g/v1/things/production/a",
			"g/v1/others/default/a",
		} {
			if err := store.Put(key, []byte(`{"key":"`+key+`"}`)); err != nil {
				t.Fatalf("Put(%s) failed: %v", key, err)
			}
		}

		all, err := store.List("g/v1/things/")
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(all) != 3 {
			t.Errorf("Expected 3 things across namespaces, got %d", len(all))
		}

		defaults, err := store.List("g/v1/things/default/")
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(defaults) != 2 {
			t.Fatalf("Expected 2 things in default, got %d", len(defaults))
		}
		// 按 key 排序：a 在 b 之前
		if string(defaults[0]) != `{"name":"a","v":2}` {
			t.Errorf("List is not sorted by key, first item: %s", defaults[0])
		}

		empty, err := store.List("g/v1/nothing/")
		if err != nil {
			t.Fatalf("List on an unknown prefix failed: %v", err)
		}
		if len(empty) != 0 {
			t.Errorf("Expected no items, got %d", len(empty))
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := store.Delete("g/v1/things/default/a"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, err := store.Get("g/v1/things/default/a"); !errors.Is(err, ErrKeyNotFound) {
			t.Errorf("Expected ErrKeyNotFound after delete, but got: %v", err)
		}
		// 删除一个不存在的 key，不应该报错
		if err := store.Delete("g/v1/things/default/a"); err != nil {
			t.Errorf("Deleting a non-existent key should not return an error, but got: %v", err)
		}
	})

	t.Run("ResourceVersion", func(t *testing.T) {
		start, err := store.CurrentResourceVersion()
		if err != nil {
			t.Fatalf("CurrentResourceVersion failed: %v", err)
		}
		for i := uint64(1); i <= 3; i++ {
			rv, err := store.NextResourceVersion()
			if err != nil {
				t.Fatalf("NextResourceVersion failed: %v", err)
			}
			if rv != start+i {
				t.Errorf("Expected resource version %d, got %d", start+i, rv)
			}
		}
		current, _ := store.CurrentResourceVersion()
		if current != start+3 {
			t.Errorf("Expected current resource version %d, got %d", start+3, current)
		}
	})
}
