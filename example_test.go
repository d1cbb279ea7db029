package hostbridge_test

import (
	"context"
	"fmt"
	"time"

	"github.com/joeycumines/go-hostbridge"
	"github.com/joeycumines/go-hostbridge/hosttest"
)

func ExampleNewOneShot() {
	tx, rx := hostbridge.NewOneShot[string]()

	_, status := rx.Poll(hostbridge.NoopWaker)
	fmt.Println(status)

	_ = tx.TrySend("hello")
	v, status := rx.Poll(hostbridge.NoopWaker)
	fmt.Println(status, v)

	//output:
	//Pending
	//Ready hello
}

func ExampleNewTimeout() {
	host := hosttest.New()
	to, err := hostbridge.NewTimeout(host, time.Second, func() string { return "timed out" })
	if err != nil {
		panic(err)
	}
	defer to.Close()

	host.Advance(time.Second)
	v, status := to.Poll(hostbridge.NoopWaker)
	fmt.Println(status, v)

	//output:
	//Ready timed out
}

func ExampleListen() {
	host := hosttest.New()
	clicks, err := hostbridge.Listen(host, "click", func(payload any) string {
		return fmt.Sprintf("clicked at %v", payload)
	})
	if err != nil {
		panic(err)
	}

	host.Dispatch("click", 10)
	host.Dispatch("click", 20)

	for {
		v, status := clicks.PollNext(hostbridge.NoopWaker)
		if status != hostbridge.Ready {
			fmt.Println(status)
			break
		}
		fmt.Println(v)
	}

	clicks.Close()
	fmt.Println(host.Dispatch("click", 30))

	//output:
	//clicked at 10
	//clicked at 20
	//Pending
	//0
}

func ExampleNewAbortable() {
	host := hosttest.New()
	handle, signal := hostbridge.NewAbortHandle()

	sleep, err := hostbridge.Sleep(host, time.Minute)
	if err != nil {
		panic(err)
	}
	defer sleep.Close()
	fut := hostbridge.NewAbortable[struct{}](sleep, signal)

	handle.Abort("user cancelled")
	_, status := fut.Poll(hostbridge.NoopWaker)
	fmt.Println(status)
	fmt.Println(fut.Err())

	//output:
	//Aborted
	//hostbridge: operation aborted: user cancelled
}

func ExamplePipeTo() {
	src, err := hostbridge.NewReadBuilder().
		Start(func(c *hostbridge.ReadController) error {
			for _, s := range []string{"one ", "two ", "three"} {
				if err := c.Enqueue([]byte(s)); err != nil {
					return err
				}
			}
			return c.Close()
		}).
		Build()
	if err != nil {
		panic(err)
	}

	var out []byte
	dst, err := hostbridge.NewWriteBuilder().
		Write(func(chunk []byte, _ *hostbridge.WriteController) error {
			out = append(out, chunk...)
			return nil
		}).
		Build()
	if err != nil {
		panic(err)
	}

	res, status, err := hostbridge.Wait[error](context.Background(), hostbridge.PipeTo(src, dst))
	if err != nil {
		panic(err)
	}
	fmt.Println(status, res)
	fmt.Println(string(out))

	//output:
	//Ready <nil>
	//one two three
}
