package authorizer

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/feral-file/ff-transfer-monitor/internal/auth"
	"github.com/feral-file/ff-transfer-monitor/internal/logger"
)

const (
	policyVersion = "2012-10-17"
	invokeAction  = "execute-api:Invoke"

	// denyPrincipal is reported for every rejected token
	denyPrincipal = "user"
)

// Handler is the API Gateway TOKEN authorizer entry point
type Handler func(ctx context.Context, request events.APIGatewayCustomAuthorizerRequest) (events.APIGatewayCustomAuthorizerResponse, error)

// NewHandler returns an authorizer that allows the requested method for valid
// credentials and denies everything otherwise. It never returns an error, since
// API Gateway turns authorizer errors into 500 responses.
func NewHandler(authenticator *auth.Authenticator) Handler {
	return func(ctx context.Context, request events.APIGatewayCustomAuthorizerRequest) (events.APIGatewayCustomAuthorizerResponse, error) {
		result := authenticator.Authenticate(request.AuthorizationToken)
		if !result.Success {
			logger.WarnCtx(ctx, "Authorization denied",
				zap.Error(result.Error),
				zap.String("method_arn", request.MethodArn))
			return DenyAllPolicy(), nil
		}

		principal := result.Subject
		if principal == "" {
			principal = result.AuthType
		}

		logger.DebugCtx(ctx, "Authorization allowed",
			zap.String("principal", principal),
			zap.String("auth_type", result.AuthType),
			zap.String("method_arn", request.MethodArn))

		return AllowPolicy(principal, request.MethodArn, map[string]interface{}{
			"auth_type": result.AuthType,
		}), nil
	}
}

// AllowPolicy grants invoke on a single method
func AllowPolicy(principal, methodArn string, context map[string]interface{}) events.APIGatewayCustomAuthorizerResponse {
	return events.APIGatewayCustomAuthorizerResponse{
		PrincipalID:    principal,
		PolicyDocument: policyDocument("Allow", methodArn),
		Context:        context,
	}
}

// DenyAllPolicy denies invoke on every resource
func DenyAllPolicy() events.APIGatewayCustomAuthorizerResponse {
	return events.APIGatewayCustomAuthorizerResponse{
		PrincipalID:    denyPrincipal,
		PolicyDocument: policyDocument("Deny", "*"),
	}
}

func policyDocument(effect, resource string) events.APIGatewayCustomAuthorizerPolicy {
	return events.APIGatewayCustomAuthorizerPolicy{
		Version: policyVersion,
		Statement: []events.IAMPolicyStatement{
			{
				Action:   []string{invokeAction},
				Effect:   effect,
				Resource: []string{resource},
			},
		},
	}
}
