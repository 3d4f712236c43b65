package pipe_test

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/flocksim/internal/pipe"
)

var _ = Describe("Queue", func() {
	var q *pipe.Queue[int]

	BeforeEach(func() {
		q = pipe.NewQueue[int]()
	})

	It("delivers items in FIFO order", func() {
		for i := 0; i < 5; i++ {
			Expect(q.Send(i)).To(Succeed())
		}
		q.Close()

		var got []int
		for {
			v, ok := q.Recv(context.Background())
			if !ok {
				break
			}
			got = append(got, v)
		}
		Expect(got).To(Equal([]int{0, 1, 2, 3, 4}))
	})

	It("never blocks the producer without a consumer", func() {
		done := make(chan struct{})
		go func() {
			defer close(done)
			for i := 0; i < 100000; i++ {
				_ = q.Send(i)
			}
		}()
		Eventually(done).WithTimeout(5 * time.Second).Should(BeClosed())
		Expect(q.Len()).To(Equal(100000))
	})

	It("accepts many concurrent producers", func() {
		const producers, each = 8, 500
		var wg sync.WaitGroup
		for p := 0; p < producers; p++ {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				for i := 0; i < each; i++ {
					Expect(q.Send(i)).To(Succeed())
				}
			}()
		}

		received := make(chan int)
		go func() {
			n := 0
			for {
				if _, ok := q.Recv(context.Background()); !ok {
					break
				}
				n++
			}
			received <- n
		}()

		wg.Wait()
		q.Close()
		Eventually(received).WithTimeout(5 * time.Second).Should(Receive(Equal(producers * each)))
	})

	It("rejects sends after the consumer detaches", func() {
		Expect(q.Send(1)).To(Succeed())
		q.Detach()

		Expect(q.Send(2)).To(MatchError(pipe.ErrDisconnected))
		sent, dropped := q.Stats()
		Expect(sent).To(Equal(uint64(1)))
		Expect(dropped).To(Equal(uint64(2)))

		_, ok := q.Recv(context.Background())
		Expect(ok).To(BeFalse())
	})

	It("rejects sends after close", func() {
		q.Close()
		Expect(q.Send(1)).To(MatchError(pipe.ErrClosed))
	})

	It("unblocks Recv when the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		result := make(chan bool)
		go func() {
			_, ok := q.Recv(ctx)
			result <- ok
		}()
		cancel()
		Eventually(result).WithTimeout(time.Second).Should(Receive(BeFalse()))
	})

	It("wakes a waiting consumer on send", func() {
		result := make(chan int)
		go func() {
			v, _ := q.Recv(context.Background())
			result <- v
		}()
		time.Sleep(10 * time.Millisecond)
		Expect(q.Send(42)).To(Succeed())
		Eventually(result).WithTimeout(time.Second).Should(Receive(Equal(42)))
	})
})

var _ = Describe("ChanSink", func() {
	It("drops values when the channel is full", func() {
		ch := make(chan string, 1)
		sink := pipe.ChanSink[string](ch)

		Expect(sink.Send("a")).To(Succeed())
		Expect(sink.Send("b")).To(MatchError(pipe.ErrDisconnected))
		Expect(ch).To(Receive(Equal("a")))
	})
})
