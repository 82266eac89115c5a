package utils

import (
	"context"

	"bitbucket.org/mmdatafocus/retailops_backend/appctx"
)

var (
	ContextKeyActor         = appctx.ContextKeyActor
	ContextKeyLocation      = appctx.ContextKeyLocation
	ContextKeyCorrelationId = appctx.ContextKeyCorrelationId
)

func GetActorFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyActor)
}

func GetLocationFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyLocation)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func SetActorInContext(ctx context.Context, actor string) context.Context {
	return appctx.Set(ctx, ContextKeyActor, actor)
}

func SetLocationInContext(ctx context.Context, location string) context.Context {
	return appctx.Set(ctx, ContextKeyLocation, location)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}
