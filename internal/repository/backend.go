package repository

import "fmt"

// Backend knows how to turn a parsed repository URI and a set of resolved
// credentials into the environment variables the engine needs for that
// storage type (spec.md §4.5's backend_env()).
type Backend interface {
	Type() string
	Env(uri ParsedURI, credentials map[string]string) map[string]string
	RepositoryArg(uri ParsedURI) string
}

// Registry maps a URI scheme to a Backend constructor. Built-in backends
// register themselves in init(); additional backends may be registered at
// runtime, keeping the registry open for extension without modifying C5
// itself (spec.md §4.5's "Open/Closed").
type Registry struct {
	ctors map[string]func(ParsedURI) Backend
}

// NewRegistry returns a Registry pre-populated with every backend ships
// built-in (the schemes.Known set).
func NewRegistry() *Registry {
	r := &Registry{ctors: make(map[string]func(ParsedURI) Backend)}
	for scheme, ctor := range builtinBackends {
		r.Register(scheme, ctor)
	}
	return r
}

// Register adds or replaces the constructor for scheme.
func (r *Registry) Register(scheme string, ctor func(ParsedURI) Backend) {
	r.ctors[scheme] = ctor
}

// Lookup returns the constructor registered for scheme, if any.
func (r *Registry) Lookup(scheme string) (func(ParsedURI) Backend, bool) {
	ctor, ok := r.ctors[scheme]
	return ctor, ok
}

var builtinBackends = map[string]func(ParsedURI) Backend{
	"local":  func(u ParsedURI) Backend { return localBackend{} },
	"file":   func(u ParsedURI) Backend { return localBackend{} },
	"s3":     func(u ParsedURI) Backend { return s3Backend{} },
	"b2":     func(u ParsedURI) Backend { return b2Backend{} },
	"sftp":   func(u ParsedURI) Backend { return sftpBackend{} },
	"rest":   func(u ParsedURI) Backend { return restBackend{} },
	"rclone": func(u ParsedURI) Backend { return rcloneBackend{} },
	"swift":  func(u ParsedURI) Backend { return swiftBackend{} },
	"azure":  func(u ParsedURI) Backend { return azureBackend{} },
	"gs":     func(u ParsedURI) Backend { return gsBackend{} },
}

type localBackend struct{}

func (localBackend) Type() string { return "local" }
func (localBackend) Env(ParsedURI, map[string]string) map[string]string {
	return map[string]string{}
}
func (localBackend) RepositoryArg(u ParsedURI) string { return u.Path }

type s3Backend struct{}

func (s3Backend) Type() string { return "s3" }
func (s3Backend) Env(u ParsedURI, creds map[string]string) map[string]string {
	env := map[string]string{}
	if v, ok := creds["access_key_id"]; ok {
		env["AWS_ACCESS_KEY_ID"] = v
	}
	if v, ok := creds["secret_access_key"]; ok {
		env["AWS_SECRET_ACCESS_KEY"] = v
	}
	if v, ok := creds["session_token"]; ok {
		env["AWS_SESSION_TOKEN"] = v
	}
	return env
}
func (s3Backend) RepositoryArg(u ParsedURI) string { return fmt.Sprintf("s3:%s%s", u.Host, u.Path) }

type b2Backend struct{}

func (b2Backend) Type() string { return "b2" }
func (b2Backend) Env(u ParsedURI, creds map[string]string) map[string]string {
	env := map[string]string{}
	if v, ok := creds["account_id"]; ok {
		env["B2_ACCOUNT_ID"] = v
	}
	if v, ok := creds["account_key"]; ok {
		env["B2_ACCOUNT_KEY"] = v
	}
	return env
}
func (b2Backend) RepositoryArg(u ParsedURI) string { return fmt.Sprintf("b2:%s%s", u.Host, u.Path) }

type sftpBackend struct{}

func (sftpBackend) Type() string                                           { return "sftp" }
func (sftpBackend) Env(ParsedURI, map[string]string) map[string]string     { return map[string]string{} }
func (sftpBackend) RepositoryArg(u ParsedURI) string                       { return fmt.Sprintf("sftp:%s:%s", u.Host, u.Path) }

type restBackend struct{}

func (restBackend) Type() string { return "rest" }
func (restBackend) Env(u ParsedURI, creds map[string]string) map[string]string {
	return map[string]string{}
}
func (restBackend) RepositoryArg(u ParsedURI) string {
	return fmt.Sprintf("rest:https://%s%s", u.Host, u.Path)
}

type rcloneBackend struct{}

func (rcloneBackend) Type() string                                       { return "rclone" }
func (rcloneBackend) Env(ParsedURI, map[string]string) map[string]string { return map[string]string{} }
func (rcloneBackend) RepositoryArg(u ParsedURI) string {
	return fmt.Sprintf("rclone:%s%s", u.Host, u.Path)
}

type swiftBackend struct{}

func (swiftBackend) Type() string { return "swift" }
func (swiftBackend) Env(u ParsedURI, creds map[string]string) map[string]string {
	env := map[string]string{}
	if v, ok := creds["username"]; ok {
		env["OS_USERNAME"] = v
	}
	if v, ok := creds["password"]; ok {
		env["OS_PASSWORD"] = v
	}
	if v, ok := creds["auth_url"]; ok {
		env["OS_AUTH_URL"] = v
	}
	if v, ok := creds["tenant_name"]; ok {
		env["OS_TENANT_NAME"] = v
	}
	return env
}
func (swiftBackend) RepositoryArg(u ParsedURI) string {
	return fmt.Sprintf("swift:%s%s", u.Host, u.Path)
}

type azureBackend struct{}

func (azureBackend) Type() string { return "azure" }
func (azureBackend) Env(u ParsedURI, creds map[string]string) map[string]string {
	env := map[string]string{}
	if v, ok := creds["account_name"]; ok {
		env["AZURE_ACCOUNT_NAME"] = v
	}
	if v, ok := creds["account_key"]; ok {
		env["AZURE_ACCOUNT_KEY"] = v
	}
	return env
}
func (azureBackend) RepositoryArg(u ParsedURI) string {
	return fmt.Sprintf("azure:%s%s", u.Host, u.Path)
}

type gsBackend struct{}

func (gsBackend) Type() string { return "gs" }
func (gsBackend) Env(u ParsedURI, creds map[string]string) map[string]string {
	env := map[string]string{}
	if v, ok := creds["project_id"]; ok {
		env["GOOGLE_PROJECT_ID"] = v
	}
	if v, ok := creds["credentials_file"]; ok {
		env["GOOGLE_APPLICATION_CREDENTIALS"] = v
	}
	return env
}
func (gsBackend) RepositoryArg(u ParsedURI) string { return fmt.Sprintf("gs:%s:%s", u.Host, u.Path) }
