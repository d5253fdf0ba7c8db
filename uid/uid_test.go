package uid

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/hatlonely/dbstruct/ref"
)

func TestSnowflakeGenerator(t *testing.T) {
	Convey("测试 snowflake", t, func() {
		machineID := int64(123)
		gen := NewSnowflakeGeneratorWithOptions(&SnowflakeOptions{MachineID: &machineID})
		ctx := context.Background()

		Convey("id 递增并带有机器 id", func() {
			id1, err := gen.NextID(ctx)
			So(err, ShouldBeNil)
			id2, err := gen.NextID(ctx)
			So(err, ShouldBeNil)
			So(id2, ShouldBeGreaterThan, id1)
			So((id1>>machineIDShift)&maxMachineID, ShouldEqual, 123)
			So(id1>>timestampShift, ShouldBeGreaterThan, 0)
		})

		Convey("机器 id 截断到 10 位", func() {
			large := int64(2048 + 7)
			g := NewSnowflakeGeneratorWithOptions(&SnowflakeOptions{MachineID: &large})
			id, _ := g.NextID(ctx)
			So((id>>machineIDShift)&maxMachineID, ShouldEqual, 7)
		})

		Convey("时钟回拨时不重复", func() {
			now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
			gen.now = func() time.Time { return now }
			id1, _ := gen.NextID(ctx)
			now = now.Add(-time.Second)
			id2, _ := gen.NextID(ctx)
			So(id2, ShouldBeGreaterThan, id1)
			So(id2>>timestampShift, ShouldEqual, id1>>timestampShift)
		})

		Convey("同一毫秒序列号用完后等待", func() {
			now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
			var mu sync.Mutex
			calls := 0
			gen.now = func() time.Time {
				mu.Lock()
				defer mu.Unlock()
				calls++
				if calls > maxSequence+2 {
					return now.Add(time.Millisecond)
				}
				return now
			}
			var last int64
			for i := 0; i <= maxSequence+1; i++ {
				id, err := gen.NextID(ctx)
				So(err, ShouldBeNil)
				So(id, ShouldBeGreaterThan, last)
				last = id
			}
			So(last&maxSequence, ShouldEqual, 0)
		})

		Convey("并发生成不重复", func() {
			var wg sync.WaitGroup
			var mu sync.Mutex
			ids := map[int64]bool{}
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for j := 0; j < 1000; j++ {
						id, _ := gen.NextID(ctx)
						mu.Lock()
						ids[id] = true
						mu.Unlock()
					}
				}()
			}
			wg.Wait()
			So(ids, ShouldHaveLength, 8000)
		})
	})
}

func TestRedisSequenceGenerator(t *testing.T) {
	Convey("测试 redis 序列", t, func() {
		mr := miniredis.RunT(t)
		addr := mr.Addr()

		gen, err := NewIDGeneratorWithOptions(&ref.TypeOptions{
			Type:    "RedisSequenceGenerator",
			Options: &RedisSequenceOptions{Endpoint: addr, Key: "seq:person"},
		})
		So(err, ShouldBeNil)

		ctx := context.Background()
		for i := int64(1); i <= 3; i++ {
			id, err := gen.NextID(ctx)
			So(err, ShouldBeNil)
			So(id, ShouldEqual, i)
		}
		v, err := mr.Get("seq:person")
		So(err, ShouldBeNil)
		So(v, ShouldEqual, "3")

		mr.Close()
		_, err = gen.NextID(ctx)
		So(err, ShouldNotBeNil)

		_, err = NewRedisSequenceGeneratorWithOptions(&RedisSequenceOptions{Endpoint: addr})
		So(err, ShouldNotBeNil)
		_, err = NewIDGeneratorWithOptions(nil)
		So(err, ShouldNotBeNil)
		_, err = NewIDGeneratorWithOptions(&ref.TypeOptions{Type: "TicketGenerator"})
		So(err, ShouldNotBeNil)
	})
}

func TestUUIDGenerator(t *testing.T) {
	hyphenated := regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-([0-9a-f])[0-9a-f]{3}-[0-9a-f]{4}-[0-9a-f]{12}$`)

	for _, version := range []string{"v1", "v4", "v6", "v7"} {
		t.Run(version, func(t *testing.T) {
			gen, err := NewUUIDGeneratorWithOptions(&UUIDOptions{Version: version})
			if err != nil {
				t.Fatal(err)
			}
			s, err := gen.Generate()
			if err != nil {
				t.Fatal(err)
			}
			m := hyphenated.FindStringSubmatch(s)
			if m == nil {
				t.Fatalf("unexpected uuid %q", s)
			}
			if m[1] != version[1:] {
				t.Errorf("expected version %s, got %s", version[1:], m[1])
			}
		})
	}

	t.Run("without hyphens", func(t *testing.T) {
		gen, _ := NewUUIDGeneratorWithOptions(&UUIDOptions{WithoutHyphens: true})
		s, _ := gen.Generate()
		if !regexp.MustCompile(`^[0-9a-f]{32}$`).MatchString(s) {
			t.Errorf("unexpected uuid %q", s)
		}
	})

	t.Run("unsupported version", func(t *testing.T) {
		if _, err := NewUUIDGeneratorWithOptions(&UUIDOptions{Version: "v3"}); err == nil {
			t.Error("expected error")
		}
	})
}
