// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package testing

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigateway"
	"github.com/aws/aws-sdk-go-v2/service/apigateway/types"
	"github.com/juju/collections/set"
)

type fakeRestAPI struct {
	id     string
	name   string
	body   []byte
	stages []string
}

// GatewayServer implements an API gateway service simulator for use
// in testing.
type GatewayServer struct {
	mu sync.Mutex

	apis   map[string]*fakeRestAPI
	nextID int

	// PageSize bounds GetRestApis pages so pagination is exercised.
	// Zero means everything in one page.
	PageSize int
}

func NewGatewayServer() *GatewayServer {
	srv := &GatewayServer{}
	srv.Reset()
	return srv
}

func (g *GatewayServer) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.apis = make(map[string]*fakeRestAPI)
	g.nextID = 0
}

// AddRestAPI seeds a REST API and returns its id.
func (g *GatewayServer) AddRestAPI(name string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addLocked(name, nil)
}

// Stages returns the stages an API has been deployed to.
func (g *GatewayServer) Stages(apiID string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if api, ok := g.apis[apiID]; ok {
		return api.stages
	}
	return nil
}

func (g *GatewayServer) addLocked(name string, body []byte) string {
	g.nextID++
	id := fmt.Sprintf("restapi-%d", g.nextID)
	g.apis[id] = &fakeRestAPI{id: id, name: name, body: body}
	return id
}

// sortedIDs keeps paging deterministic.
func (g *GatewayServer) sortedIDs() []string {
	ids := set.NewStrings()
	for id := range g.apis {
		ids.Add(id)
	}
	return ids.SortedValues()
}

func (g *GatewayServer) GetRestApi(
	ctx context.Context,
	input *apigateway.GetRestApiInput,
	opts ...func(*apigateway.Options),
) (*apigateway.GetRestApiOutput, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	api, exists := g.apis[*input.RestApiId]
	if !exists {
		return nil, apiError("NotFoundException", "rest api %s not found", *input.RestApiId)
	}
	return &apigateway.GetRestApiOutput{
		Id:   aws.String(api.id),
		Name: aws.String(api.name),
	}, nil
}

func (g *GatewayServer) GetRestApis(
	ctx context.Context,
	input *apigateway.GetRestApisInput,
	opts ...func(*apigateway.Options),
) (*apigateway.GetRestApisOutput, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ids := g.sortedIDs()
	start := 0
	if input.Position != nil {
		var err error
		if start, err = strconv.Atoi(*input.Position); err != nil {
			return nil, apiError("BadRequestException", "bad position %s", *input.Position)
		}
	}
	end := len(ids)
	if g.PageSize > 0 && start+g.PageSize < end {
		end = start + g.PageSize
	}

	out := &apigateway.GetRestApisOutput{}
	for _, id := range ids[start:end] {
		api := g.apis[id]
		out.Items = append(out.Items, types.RestApi{
			Id:   aws.String(api.id),
			Name: aws.String(api.name),
		})
	}
	if end < len(ids) {
		out.Position = aws.String(strconv.Itoa(end))
	}
	return out, nil
}

func (g *GatewayServer) ImportRestApi(
	ctx context.Context,
	input *apigateway.ImportRestApiInput,
	opts ...func(*apigateway.Options),
) (*apigateway.ImportRestApiOutput, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	name, err := apiTitle(input.Body)
	if err != nil {
		return nil, err
	}
	id := g.addLocked(name, input.Body)
	return &apigateway.ImportRestApiOutput{
		Id:   aws.String(id),
		Name: aws.String(name),
	}, nil
}

func (g *GatewayServer) PutRestApi(
	ctx context.Context,
	input *apigateway.PutRestApiInput,
	opts ...func(*apigateway.Options),
) (*apigateway.PutRestApiOutput, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	api, exists := g.apis[*input.RestApiId]
	if !exists {
		return nil, apiError("NotFoundException", "rest api %s not found", *input.RestApiId)
	}
	if input.Mode != types.PutModeOverwrite {
		return nil, apiError("BadRequestException", "unsupported put mode %s", input.Mode)
	}
	api.body = input.Body
	return &apigateway.PutRestApiOutput{
		Id:   aws.String(api.id),
		Name: aws.String(api.name),
	}, nil
}

func (g *GatewayServer) CreateDeployment(
	ctx context.Context,
	input *apigateway.CreateDeploymentInput,
	opts ...func(*apigateway.Options),
) (*apigateway.CreateDeploymentOutput, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	api, exists := g.apis[*input.RestApiId]
	if !exists {
		return nil, apiError("NotFoundException", "rest api %s not found", *input.RestApiId)
	}
	api.stages = append(api.stages, aws.ToString(input.StageName))
	return &apigateway.CreateDeploymentOutput{
		Id: aws.String(fmt.Sprintf("deployment-%d", len(api.stages))),
	}, nil
}

func (g *GatewayServer) DeleteRestApi(
	ctx context.Context,
	input *apigateway.DeleteRestApiInput,
	opts ...func(*apigateway.Options),
) (*apigateway.DeleteRestApiOutput, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.apis[*input.RestApiId]; !exists {
		return nil, apiError("NotFoundException", "rest api %s not found", *input.RestApiId)
	}
	delete(g.apis, *input.RestApiId)
	return &apigateway.DeleteRestApiOutput{}, nil
}

func (g *GatewayServer) GetSdk(
	ctx context.Context,
	input *apigateway.GetSdkInput,
	opts ...func(*apigateway.Options),
) (*apigateway.GetSdkOutput, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.apis[*input.RestApiId]; !exists {
		return nil, apiError("NotFoundException", "rest api %s not found", *input.RestApiId)
	}
	body := fmt.Sprintf("%s sdk for %s stage %s",
		aws.ToString(input.SdkType), aws.ToString(input.RestApiId), aws.ToString(input.StageName))
	return &apigateway.GetSdkOutput{
		Body: []byte(body),
	}, nil
}

// apiTitle pulls the API name out of a swagger document the way the
// provider does on import.
func apiTitle(body []byte) (string, error) {
	var doc struct {
		Info struct {
			Title string `json:"title"`
		} `json:"info"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return "", apiError("BadRequestException", "invalid swagger document: %v", err)
	}
	return doc.Info.Title, nil
}
