package server

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
)

// LambdaHandler serves API Gateway proxy requests
type LambdaHandler func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)

// NewLambdaHandler adapts the server's router to API Gateway proxy events
func (s *Server) NewLambdaHandler() (LambdaHandler, error) {
	router, err := s.Router()
	if err != nil {
		return nil, err
	}

	adapter := ginadapter.New(router)
	return adapter.ProxyWithContext, nil
}
