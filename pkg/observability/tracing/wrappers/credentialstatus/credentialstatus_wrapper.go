/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

//nolint:lll
package credentialstatus

import (
	"context"

	"github.com/hyperledger/aries-framework-go/component/models/verifiable"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/trustbloc/status/pkg/observability/tracing/attributeutil"
	"github.com/trustbloc/status/pkg/service/credentialstatus"
)

type Service credentialstatus.ServiceInterface

type Wrapper struct {
	svc    Service
	tracer trace.Tracer
}

func Wrap(svc Service, tracer trace.Tracer) *Wrapper {
	return &Wrapper{svc: svc, tracer: tracer}
}

func (w *Wrapper) CreateStatusList(ctx context.Context, instance *credentialstatus.Instance, params credentialstatus.CreateStatusListParams) (*credentialstatus.SLCWrapper, error) {
	ctx, span := w.tracer.Start(ctx, "credentialstatus.CreateStatusList")
	defer span.End()

	span.SetAttributes(attribute.String("config_id", instance.ID))
	span.SetAttributes(attribute.String("status_list_id", params.StatusListID))
	span.SetAttributes(attribute.String("status_type", string(params.Type)))

	wrapper, err := w.svc.CreateStatusList(ctx, instance, params)
	if err != nil {
		return nil, err
	}

	return wrapper, nil
}

func (w *Wrapper) UpdateCredentialStatus(ctx context.Context, params credentialstatus.UpdateStatusParams) error {
	ctx, span := w.tracer.Start(ctx, "credentialstatus.UpdateCredentialStatus")
	defer span.End()

	span.SetAttributes(attribute.String("credential_id", params.CredentialID))
	span.SetAttributes(attributeutil.JSON("params", params))

	err := w.svc.UpdateCredentialStatus(ctx, params)
	if err != nil {
		return err
	}

	return nil
}

func (w *Wrapper) GetStatusListVC(ctx context.Context, instance *credentialstatus.Instance, statusListID string) (*verifiable.Credential, error) {
	ctx, span := w.tracer.Start(ctx, "credentialstatus.GetStatusListVC")
	defer span.End()

	span.SetAttributes(attribute.String("config_id", instance.ID))
	span.SetAttributes(attribute.String("status_list_id", statusListID))

	vc, err := w.svc.GetStatusListVC(ctx, instance, statusListID)
	if err != nil {
		return nil, err
	}

	return vc, nil
}

func (w *Wrapper) RefreshStatusListVC(ctx context.Context, instance *credentialstatus.Instance, statusListID string) (*verifiable.Credential, error) {
	ctx, span := w.tracer.Start(ctx, "credentialstatus.RefreshStatusListVC")
	defer span.End()

	span.SetAttributes(attribute.String("config_id", instance.ID))
	span.SetAttributes(attribute.String("status_list_id", statusListID))

	vc, err := w.svc.RefreshStatusListVC(ctx, instance, statusListID)
	if err != nil {
		return nil, err
	}

	return vc, nil
}
