package mint

const (
	Env_AwsAccountId = "AWS_ACCOUNT_ID"
	Env_AwsEndpoint  = "AWS_ENDPOINT"
	Env_AwsRegion    = "AWS_REGION"
	Env_Branch       = "BRANCH"
	Env_Env          = "ENV"
	Env_EnvTag       = "ENV_TAG"
	Env_Sha          = "SHA"
	Env_ShaTag       = "SHA_TAG"
	Env_LogLevel     = "LOG_LEVEL"
)

const (
	EnvTag_Dev  = "dev"
	EnvTag_Qa   = "qa"
	EnvTag_Prod = "prod"
)

// ValidEnvTag reports whether images can be built and deployed for the environment tag.
func ValidEnvTag(envTag string) bool {
	switch envTag {
	case EnvTag_Dev, EnvTag_Qa, EnvTag_Prod:
		return true
	}
	return false
}
