package provisioner

// Register points the named server at entry, creating the server map when
// missing. Any previous entry under name is replaced wholesale; other
// servers and top-level keys are left alone. It reports whether an entry
// was replaced.
func Register(doc Document, name string, entry map[string]any) bool {
	servers := doc.Servers()
	if servers == nil {
		servers = map[string]any{}
		doc[MCPServersKey] = servers
	}

	_, replaced := servers[name]
	servers[name] = entry
	return replaced
}
