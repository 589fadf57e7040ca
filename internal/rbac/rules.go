package rbac

// Simple default policy. Quiz-taking is public and never passes through
// here; these permissions cover authoring surfaces only.
var RolePermissions = map[string][]string{
	"creator": {
		"quiz:create",
		"quiz:edit-own",
		"quiz:delete-own",
		"quiz:list-own",
		"quiz:stats-own",
		"preview:write",
		"asset:upload",
	},
	"admin": {
		"*", // everything
	},
}
