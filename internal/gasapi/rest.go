package gasapi

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	script "google.golang.org/api/script/v1"

	gmerrors "github.com/gas-mcp/gas-mcp-server/internal/errors"
	"github.com/gas-mcp/gas-mcp-server/internal/pathresolver"
)

// RestClient is the production Client adapter over the Apps Script REST
// API. The OAuth2 token is a bearer capability: this package never
// inspects scopes or refreshes tokens itself, it only hands the
// TokenSource to the generated client.
type RestClient struct {
	service *script.Service
}

// NewRestClient builds a RestClient from an OAuth2 token source. Token
// refresh, scope validation, and credential storage are the caller's
// concern (spec.md names AuthProvider as a capability interface only).
func NewRestClient(ctx context.Context, tokenSource oauth2.TokenSource) (*RestClient, error) {
	service, err := script.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("building Apps Script service: %w", err)
	}
	return &RestClient{service: service}, nil
}

func (c *RestClient) ListContent(ctx context.Context, scriptID string) ([]File, error) {
	content, err := c.service.Projects.GetContent(scriptID).Context(ctx).Do()
	if err != nil {
		return nil, translateError("listContent", err)
	}
	return convertFiles(content.Files), nil
}

func (c *RestClient) GetMetadata(ctx context.Context, scriptID string) ([]File, error) {
	files, err := c.ListContent(ctx, scriptID)
	if err != nil {
		return nil, err
	}
	for i := range files {
		files[i].Source = ""
	}
	return files, nil
}

func (c *RestClient) UpdateFile(ctx context.Context, scriptID string, file File, position int) ([]File, error) {
	existing, err := c.ListContent(ctx, scriptID)
	if err != nil {
		return nil, err
	}

	updated := replaceOrInsert(existing, file, position)
	content := &script.Content{
		ScriptId: scriptID,
		Files:    convertToAPIFiles(updated),
	}

	result, err := c.service.Projects.UpdateContent(scriptID, content).Context(ctx).Do()
	if err != nil {
		return nil, translateError("updateFile", err)
	}
	return convertFiles(result.Files), nil
}

func (c *RestClient) DeleteFile(ctx context.Context, scriptID, name string) error {
	existing, err := c.ListContent(ctx, scriptID)
	if err != nil {
		return err
	}

	remaining := make([]File, 0, len(existing))
	for _, f := range existing {
		if f.Name != name {
			remaining = append(remaining, f)
		}
	}
	if len(remaining) == len(existing) {
		return gmerrors.New(gmerrors.CodeNotFound, "deleteFile: no such file", nil).WithContext("name", name)
	}

	content := &script.Content{ScriptId: scriptID, Files: convertToAPIFiles(remaining)}
	if _, err := c.service.Projects.UpdateContent(scriptID, content).Context(ctx).Do(); err != nil {
		return translateError("deleteFile", err)
	}
	return nil
}

func (c *RestClient) Reorder(ctx context.Context, scriptID string, orderedNames []string) error {
	existing, err := c.ListContent(ctx, scriptID)
	if err != nil {
		return err
	}

	byName := make(map[string]File, len(existing))
	for _, f := range existing {
		byName[f.Name] = f
	}

	reordered := make([]File, 0, len(existing))
	seen := make(map[string]bool, len(existing))
	for _, name := range orderedNames {
		if f, ok := byName[name]; ok {
			reordered = append(reordered, f)
			seen[name] = true
		}
	}
	for _, f := range existing {
		if !seen[f.Name] {
			reordered = append(reordered, f)
		}
	}

	content := &script.Content{ScriptId: scriptID, Files: convertToAPIFiles(reordered)}
	if _, err := c.service.Projects.UpdateContent(scriptID, content).Context(ctx).Do(); err != nil {
		return translateError("reorder", err)
	}
	return nil
}

func (c *RestClient) CreateVersion(ctx context.Context, scriptID, description string) (Version, error) {
	v, err := c.service.Projects.Versions.Create(scriptID, &script.Version{Description: description}).Context(ctx).Do()
	if err != nil {
		return Version{}, translateError("createVersion", err)
	}
	return Version{Number: v.VersionNumber, Description: v.Description, CreateTime: v.CreateTime}, nil
}

func (c *RestClient) CreateDeployment(ctx context.Context, scriptID string, versionNum int64, description string) (Deployment, error) {
	d, err := c.service.Projects.Deployments.Create(scriptID, &script.DeploymentConfig{
		VersionNumber: versionNum,
		Description:   description,
	}).Context(ctx).Do()
	if err != nil {
		return Deployment{}, translateError("createDeployment", err)
	}
	return convertDeployment(d), nil
}

func (c *RestClient) UpdateDeployment(ctx context.Context, scriptID, deploymentID string, versionNum int64, description string) (Deployment, error) {
	d, err := c.service.Projects.Deployments.Update(scriptID, deploymentID, &script.UpdateDeploymentRequest{
		DeploymentConfig: &script.DeploymentConfig{
			VersionNumber: versionNum,
			Description:   description,
		},
	}).Context(ctx).Do()
	if err != nil {
		return Deployment{}, translateError("updateDeployment", err)
	}
	return convertDeployment(d), nil
}

func (c *RestClient) ListDeployments(ctx context.Context, scriptID string) ([]Deployment, error) {
	resp, err := c.service.Projects.Deployments.List(scriptID).Context(ctx).Do()
	if err != nil {
		return nil, translateError("listDeployments", err)
	}
	deployments := make([]Deployment, 0, len(resp.Deployments))
	for _, d := range resp.Deployments {
		deployments = append(deployments, convertDeployment(d))
	}
	return deployments, nil
}

func (c *RestClient) FindHeadDeployment(ctx context.Context, scriptID string) (Deployment, error) {
	deployments, err := c.ListDeployments(ctx, scriptID)
	if err != nil {
		return Deployment{}, err
	}
	for _, d := range deployments {
		if d.VersionNum == 0 {
			return d, nil
		}
	}
	return Deployment{}, gmerrors.New(gmerrors.CodeNotFound, "findHeadDeployment: no HEAD deployment", nil)
}

// executionResult mirrors the JSON the Execution API embeds in a
// completed Operation's Response field (google.script.v1.ExecutionResponse).
type executionResult struct {
	Result interface{} `json:"result"`
}

// Execute runs functionName via the Execution API in dev mode, against
// the project's latest saved (HEAD) content rather than a pinned
// deployment. scripts.run returns a long-running Operation that is
// already Done by the time a simple, non-Sheets-addon function returns.
func (c *RestClient) Execute(ctx context.Context, scriptID, functionName string, parameters []interface{}) (ExecResult, error) {
	req := &script.ExecutionRequest{
		Function:   functionName,
		Parameters: parameters,
		DevMode:    true,
	}
	op, err := c.service.Scripts.Run(scriptID, req).Context(ctx).Do()
	if err != nil {
		return ExecResult{}, translateError("execute", err)
	}
	if op.Error != nil {
		return ExecResult{ExecutionError: operationErrorMessage(op.Error)}, nil
	}
	var result executionResult
	if len(op.Response) > 0 {
		if err := json.Unmarshal(op.Response, &result); err != nil {
			return ExecResult{}, gmerrors.New(gmerrors.CodeInternal, "decoding execution response", err)
		}
	}
	return ExecResult{Result: result.Result}, nil
}

func operationErrorMessage(status *script.Status) string {
	if status == nil {
		return ""
	}
	if status.Message != "" {
		return status.Message
	}
	return fmt.Sprintf("execution failed with code %d", status.Code)
}

func replaceOrInsert(existing []File, file File, position int) []File {
	updated := make([]File, 0, len(existing)+1)
	replaced := false
	for _, f := range existing {
		if f.Name == file.Name {
			updated = append(updated, file)
			replaced = true
			continue
		}
		updated = append(updated, f)
	}
	if !replaced {
		if position < 0 || position > len(updated) {
			position = len(updated)
		}
		updated = append(updated[:position], append([]File{file}, updated[position:]...)...)
	}
	return updated
}

func convertFiles(apiFiles []*script.File) []File {
	files := make([]File, 0, len(apiFiles))
	for _, f := range apiFiles {
		files = append(files, convertFile(f))
	}
	return files
}

func convertFile(f *script.File) File {
	return File{
		Name:           f.Name,
		Type:           pathresolver.FileType(f.Type),
		Source:         f.Source,
		UpdateTime:     f.UpdateTime,
		LastModifyUser: lastModifyUserName(f),
	}
}

func lastModifyUserName(f *script.File) string {
	if f.LastModifyUser == nil {
		return ""
	}
	return f.LastModifyUser.Name
}

func convertToAPIFiles(files []File) []*script.File {
	apiFiles := make([]*script.File, 0, len(files))
	for _, f := range files {
		apiFiles = append(apiFiles, &script.File{
			Name:   f.Name,
			Type:   string(f.Type),
			Source: f.Source,
		})
	}
	return apiFiles
}

func convertDeployment(d *script.Deployment) Deployment {
	var versionNum int64
	description := ""
	if d.DeploymentConfig != nil {
		versionNum = d.DeploymentConfig.VersionNumber
		description = d.DeploymentConfig.Description
	}
	return Deployment{
		ID:          d.DeploymentId,
		VersionNum:  versionNum,
		Description: description,
		UpdateTime:  d.UpdateTime,
	}
}

