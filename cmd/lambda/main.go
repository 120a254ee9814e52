// Command lambda serves the same router behind API Gateway. WebSocket
// connections are not available in this mode.
package main

import (
	"context"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"

	"mockmate-backend/internal/app"
	"mockmate-backend/internal/config"
	"mockmate-backend/internal/logger"
)

var (
	once    sync.Once
	adapter *chiadapter.ChiLambda
)

func handler(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	once.Do(func() {
		cfg := config.Load()
		logger.Init(cfg.LogLevel, true)

		// Connections stay open for the life of the execution environment.
		application, _, err := app.Build(cfg)
		if err != nil {
			logger.L().WithError(err).Fatal("startup failed")
		}
		adapter = chiadapter.New(application.Router)
	})
	return adapter.ProxyWithContext(ctx, req)
}

func main() {
	lambda.Start(handler)
}
