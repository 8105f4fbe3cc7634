package orchestrator

import (
	"encoding/base64"
	"maps"

	"github.com/cuongbtq/deploy-orchestrator/internal/orchestrator/domain"
	"github.com/cuongbtq/deploy-orchestrator/shared/deployapi"
)

// SourceDefaults describes where workload programs live and which cloud
// credentials are forwarded to deployments that need them
type SourceDefaults struct {
	RepoURL     string
	Branch      string
	ProgramsDir string
	GitHubToken string
	CloudEnv    map[string]string
}

// PayloadStrategy builds the create-deployment body for one workload kind
type PayloadStrategy interface {
	Build(op domain.Operation, sc domain.SubmitContext, src SourceDefaults) (*deployapi.CreateDeploymentRequest, error)
}

// gitProgram deploys a program checked into the source repository
type gitProgram struct {
	dir         string
	cloudCreds  bool
	programEnv  string // env var receiving SubmitContext.Program, if any
	defaultCode string
}

func (g gitProgram) Build(op domain.Operation, sc domain.SubmitContext, src SourceDefaults) (*deployapi.CreateDeploymentRequest, error) {
	env := map[string]string{}
	if g.cloudCreds {
		maps.Copy(env, src.CloudEnv)
	}
	if g.programEnv != "" {
		code := sc.Program
		if code == "" {
			code = g.defaultCode
		}
		env[g.programEnv] = code
	}

	return newRequest(op, g.dir, nil, env, sc, src), nil
}

// inlineYAML ships the program text itself. Pre-run commands decode it
// from base64 env vars into Pulumi.yaml and the stack config file, so the
// repository checkout only provides a working directory.
type inlineYAML struct {
	dir           string
	defaultConfig string
}

func (y inlineYAML) Build(op domain.Operation, sc domain.SubmitContext, src SourceDefaults) (*deployapi.CreateDeploymentRequest, error) {
	program := sc.Program
	if program == "" {
		program = defaultYAMLProgram
	}
	stackConfig := sc.StackConfig
	if stackConfig == "" {
		stackConfig = y.defaultConfig
	}

	stackFile := "Pulumi." + targetOrDefault(sc.Target) + ".yaml"
	preRun := []string{
		`echo "$YAML_PROGRAM" | base64 -d | tee Pulumi.yaml`,
		`echo "$STACK_YAML" | base64 -d | tee ` + stackFile,
	}

	env := map[string]string{}
	maps.Copy(env, src.CloudEnv)
	env["YAML_PROGRAM"] = base64.StdEncoding.EncodeToString([]byte(program))
	env["STACK_YAML"] = base64.StdEncoding.EncodeToString([]byte(stackConfig))

	return newRequest(op, y.dir, preRun, env, sc, src), nil
}

func newRequest(op domain.Operation, dir string, preRun []string, env map[string]string, sc domain.SubmitContext, src SourceDefaults) *deployapi.CreateDeploymentRequest {
	git := deployapi.GitSource{
		RepoURL: src.RepoURL,
		Branch:  src.Branch,
		RepoDir: joinDir(src.ProgramsDir, dir),
	}
	if sc.Source != nil {
		if sc.Source.RepoURL != "" {
			git.RepoURL = sc.Source.RepoURL
		}
		if sc.Source.Branch != "" {
			git.Branch = sc.Source.Branch
		}
		if sc.Source.RepoDir != "" {
			git.RepoDir = sc.Source.RepoDir
		}
	}
	if src.GitHubToken != "" {
		git.GitAuth = &deployapi.GitAuth{AccessToken: src.GitHubToken}
	}

	// Caller-supplied context is merged last so it wins over strategy defaults.
	commands := append([]string{}, preRun...)
	commands = append(commands, sc.PreRunCommands...)
	maps.Copy(env, sc.Env)

	return &deployapi.CreateDeploymentRequest{
		SourceContext: deployapi.SourceContext{Git: git},
		OperationContext: deployapi.OperationContext{
			Operation:            string(op),
			PreRunCommands:       commands,
			EnvironmentVariables: env,
		},
	}
}

func joinDir(base, dir string) string {
	if base == "" {
		return dir
	}
	return base + "/" + dir
}

func targetOrDefault(target string) string {
	if target == "" {
		return "dev"
	}
	return target
}

// DefaultStrategies returns the payload strategy for every known workload kind
func DefaultStrategies() map[domain.WorkloadKind]PayloadStrategy {
	return map[domain.WorkloadKind]PayloadStrategy{
		domain.WorkloadSimpleResource: gitProgram{dir: "simple-resource"},
		domain.WorkloadBucketTime:     gitProgram{dir: "bucket-time", cloudCreds: true},
		domain.WorkloadGoBucket:       gitProgram{dir: "go-bucket", cloudCreds: true},
		domain.WorkloadLambdaTemplate: gitProgram{
			dir:         "lambda-template",
			cloudCreds:  true,
			programEnv:  "LAMBDA_CODE",
			defaultCode: defaultLambdaHandler,
		},
		domain.WorkloadInlineYAML: inlineYAML{
			dir:           "yamlcaml",
			defaultConfig: "config:\n    aws:region: us-west-2\n",
		},
	}
}

const defaultYAMLProgram = `name: yamlcaml
runtime: yaml
description: A minimal AWS Pulumi YAML program

resources:
    my-bucket:
        type: aws:s3:Bucket

outputs:
    bucketName: ${my-bucket.id}
`

const defaultLambdaHandler = `exports.handler = async function(event, context) {
    console.log("EVENT: " + JSON.stringify(event, null, 2))
    return context.logStreamName
}
`
