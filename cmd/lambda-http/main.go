package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=arm64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"

	"resume-export/internal/bootstrap"
	"resume-export/internal/shared/config"
	"resume-export/internal/shared/server/respond"
	"resume-export/internal/shared/telemetry"
)

// proxy is built on the first invocation that manages to bootstrap. A failed
// bootstrap is not remembered, so a sandbox recovers once Postgres or Redis
// come back instead of serving 503 until it is recycled.
var proxy struct {
	mu  sync.Mutex
	gin *ginadapter.GinLambdaV2
}

var buildApp = bootstrap.Build

func adapter(ctx context.Context) (*ginadapter.GinLambdaV2, error) {
	proxy.mu.Lock()
	defer proxy.mu.Unlock()
	if proxy.gin != nil {
		return proxy.gin, nil
	}

	cfg := config.Load()
	if err := telemetry.Init(cfg.LogLevel); err != nil {
		telemetry.Error("logger.init_failed", map[string]any{"error": err})
	}
	// Each sandbox has its own disk, so a local store would hand out links
	// that other sandboxes cannot serve.
	if cfg.ObjectStoreType != "s3" {
		return nil, fmt.Errorf("lambda requires OBJECT_STORE=s3, got %q", cfg.ObjectStoreType)
	}
	app, err := buildApp(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	proxy.gin = ginadapter.NewV2(app.Router)

	fields := map[string]any{"env": cfg.Env, "function": lambdacontext.FunctionName}
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		fields["aws_request_id"] = lc.AwsRequestID
	}
	telemetry.Info("lambda.cold_start", fields)
	return proxy.gin, nil
}

func handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	g, err := adapter(ctx)
	if err != nil {
		telemetry.Error("lambda.bootstrap_failed", map[string]any{"error": err, "path": req.RawPath})
		return unavailable(), nil
	}
	return g.ProxyWithContext(ctx, req)
}

func unavailable() events.APIGatewayV2HTTPResponse {
	body, _ := json.Marshal(respond.ErrorResponse{Error: respond.ErrorBody{
		Code:    "service_unavailable",
		Message: "Exports are temporarily unavailable. Please try again.",
	}})
	return events.APIGatewayV2HTTPResponse{
		StatusCode: http.StatusServiceUnavailable,
		Body:       string(body),
		Headers: map[string]string{
			"Content-Type": "application/json",
			"Retry-After":  "5",
		},
	}
}

func main() {
	lambda.Start(handler)
}
