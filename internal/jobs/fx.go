package jobs

import "go.uber.org/fx"

// ClientModule lets the API hand work to the worker.
var ClientModule = fx.Module("jobs.client",
	fx.Provide(
		NewClient,
		func(c *Client) Enqueuer { return c },
	),
)

var WorkerModule = fx.Module("jobs.worker",
	fx.Provide(NewHandlers, NewWorker),
	fx.Invoke(RegisterWorker),
)
