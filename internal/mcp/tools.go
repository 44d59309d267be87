package mcp

import (
	"context"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/probelab/headnotes/internal/domain/project"
)

type getDocumentInput struct{}

type documentOutput struct {
	ModelName   string                        `json:"model_name" jsonschema:"Model the annotation grid describes"`
	NumLayers   int                           `json:"num_layers" jsonschema:"Number of layers in the grid"`
	NumHeads    int                           `json:"num_heads" jsonschema:"Number of heads per layer"`
	Annotations map[string]project.Annotation `json:"annotations" jsonschema:"Annotations keyed L<layer>H<head>"`
	Tags        []string                      `json:"tags" jsonschema:"All tags in the project"`
	UpdatedAt   string                        `json:"updated_at" jsonschema:"Version token of this document"`
}

type mutationOutput struct {
	Annotations int      `json:"annotations" jsonschema:"Number of annotated heads after the change"`
	Tags        []string `json:"tags" jsonschema:"All tags in the project after the change"`
	UpdatedAt   string   `json:"updated_at" jsonschema:"Version token after the change"`
}

type upsertAnnotationInput struct {
	Layer        int               `json:"layer" jsonschema:"Layer index, zero-based"`
	Head         int               `json:"head" jsonschema:"Head index, zero-based"`
	Tags         []string          `json:"tags" jsonschema:"Tags for this head, major or major/minor form"`
	Descriptions map[string]string `json:"descriptions,omitempty" jsonschema:"Optional notes keyed by tag"`
}

type deleteAnnotationInput struct {
	Layer int `json:"layer" jsonschema:"Layer index, zero-based"`
	Head  int `json:"head" jsonschema:"Head index, zero-based"`
}

type tagInput struct {
	Tag string `json:"tag" jsonschema:"Tag in major or major/minor form"`
}

type deleteTopicInput struct {
	Major string `json:"major" jsonschema:"Major tag naming the topic to delete"`
}

type reparentTagInput struct {
	Tag      string `json:"tag" jsonschema:"Existing major/minor tag to move"`
	NewMajor string `json:"new_major" jsonschema:"Major tag to move the minor under"`
}

func registerTools(server *sdkmcp.Server, svc *Service) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_document",
		Description: "Get the full annotation document: grid dimensions, head annotations, and tags",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, _ getDocumentInput) (*sdkmcp.CallToolResult, documentOutput, error) {
		doc, err := svc.Document(ctx)
		if err != nil {
			return nil, documentOutput{}, toolError(err)
		}
		return textResult(fmt.Sprintf("%s: %d annotated heads, %d tags", doc.ModelName, len(doc.Annotations), len(doc.Tags))), documentOutput{
			ModelName:   doc.ModelName,
			NumLayers:   doc.NumLayers,
			NumHeads:    doc.NumHeads,
			Annotations: doc.Annotations,
			Tags:        doc.Tags,
			UpdatedAt:   doc.UpdatedAt,
		}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "upsert_annotation",
		Description: "Create or replace the annotation for one attention head",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, args upsertAnnotationInput) (*sdkmcp.CallToolResult, mutationOutput, error) {
		doc, err := svc.Apply(ctx, project.UpsertAnnotation{Annotation: project.Annotation{
			Layer:        args.Layer,
			Head:         args.Head,
			Tags:         args.Tags,
			Descriptions: args.Descriptions,
		}})
		if err != nil {
			return nil, mutationOutput{}, toolError(err)
		}
		return mutationResult(fmt.Sprintf("Annotated %s", project.HeadKey(args.Layer, args.Head)), doc)
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "delete_annotation",
		Description: "Remove the annotation for one attention head",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, args deleteAnnotationInput) (*sdkmcp.CallToolResult, mutationOutput, error) {
		doc, err := svc.Apply(ctx, project.DeleteAnnotation{Layer: args.Layer, Head: args.Head})
		if err != nil {
			return nil, mutationOutput{}, toolError(err)
		}
		return mutationResult(fmt.Sprintf("Removed %s", project.HeadKey(args.Layer, args.Head)), doc)
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "add_tag",
		Description: "Add a tag to the project's tag list without annotating any head",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, args tagInput) (*sdkmcp.CallToolResult, mutationOutput, error) {
		doc, err := svc.Apply(ctx, project.AddTag{Tag: args.Tag})
		if err != nil {
			return nil, mutationOutput{}, toolError(err)
		}
		return mutationResult(fmt.Sprintf("Added tag %q", project.NormalizeTag(args.Tag)), doc)
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "remove_tag",
		Description: "Remove a tag from the project and from every annotation carrying it",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, args tagInput) (*sdkmcp.CallToolResult, mutationOutput, error) {
		doc, err := svc.Apply(ctx, project.RemoveTag{Tag: args.Tag})
		if err != nil {
			return nil, mutationOutput{}, toolError(err)
		}
		return mutationResult(fmt.Sprintf("Removed tag %q", project.NormalizeTag(args.Tag)), doc)
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "delete_topic",
		Description: "Delete a major tag and all of its minors from the project and every annotation",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, args deleteTopicInput) (*sdkmcp.CallToolResult, mutationOutput, error) {
		doc, err := svc.Apply(ctx, project.DeleteTopic{Major: args.Major})
		if err != nil {
			return nil, mutationOutput{}, toolError(err)
		}
		return mutationResult(fmt.Sprintf("Deleted topic %q", project.NormalizeTopic(args.Major)), doc)
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "reparent_tag",
		Description: "Move a major/minor tag under a different major everywhere it appears",
	}, func(ctx context.Context, req *sdkmcp.CallToolRequest, args reparentTagInput) (*sdkmcp.CallToolResult, mutationOutput, error) {
		doc, err := svc.Apply(ctx, project.ReparentTag{Tag: args.Tag, NewMajor: args.NewMajor})
		if err != nil {
			return nil, mutationOutput{}, toolError(err)
		}
		return mutationResult(fmt.Sprintf("Moved %q under %q", project.NormalizeTag(args.Tag), project.NormalizeTopic(args.NewMajor)), doc)
	})
}

func mutationResult(message string, doc *project.Project) (*sdkmcp.CallToolResult, mutationOutput, error) {
	return textResult(message), mutationOutput{
		Annotations: len(doc.Annotations),
		Tags:        doc.Tags,
		UpdatedAt:   doc.UpdatedAt,
	}, nil
}

func textResult(message string) *sdkmcp.CallToolResult {
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: message}},
	}
}

func toolError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}
