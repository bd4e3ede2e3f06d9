package supervisor_test

import (
	"context"
	"fmt"
	"log"

	"github.com/sirupsen/logrus"

	"github.com/vnykmshr/boundq/pkg/queue"
	"github.com/vnykmshr/boundq/pkg/supervisor"
)

func Example() {
	q, err := queue.New(10)
	if err != nil {
		log.Fatal(err)
	}

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	square := func(_ context.Context, n int) (any, error) { return n * n, nil }

	sup, err := supervisor.New(supervisor.Config{
		Queue:     q,
		Producers: 3,
		Consumers: 5,
		Producer: supervisor.Repeat(100, func(_, i int) queue.Task {
			return queue.Bind(square, i)
		}),
		Logger: logger,
	})
	if err != nil {
		log.Fatal(err)
	}

	report, err := sup.Run(context.Background())
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("produced:", report.Produced)
	fmt.Println("consumed:", report.Consumed)
	fmt.Println("queue:", report.Queue.State)
	// Output:
	// produced: 300
	// consumed: 300
	// queue: destroyed
}
