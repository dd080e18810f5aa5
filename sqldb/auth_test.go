package sqldb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wansing/docflow/auth"
)

func TestLoginUser(t *testing.T) {
	a := NewAuthDB(openTestDB(t))

	u, err := a.InsertUser("  Alice@Example.org ")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.org", u.Name())

	_, err = a.LoginUser("alice@example.org", "")
	assert.Equal(t, ErrAuth, err, "no password set yet")

	assert.Equal(t, auth.ErrEmptyPassword, a.SetPassword(u, ""))
	require.NoError(t, a.SetPassword(u, "secret"))

	logged, err := a.LoginUser("ALICE@example.org", "secret")
	require.NoError(t, err)
	assert.Equal(t, u.ID(), logged.ID())

	_, err = a.LoginUser("alice@example.org", "wrong")
	assert.Equal(t, ErrAuth, err)
	_, err = a.LoginUser("nobody", "secret")
	assert.Equal(t, ErrAuth, err)

	assert.Equal(t, ErrAuth, a.ChangePassword(u, "wrong", "new"))
	require.NoError(t, a.ChangePassword(u, "secret", "new"))
	_, err = a.LoginUser("alice@example.org", "new")
	assert.NoError(t, err)
}

func TestGroupsAndChains(t *testing.T) {
	a := NewAuthDB(openTestDB(t))

	alice, err := a.InsertUser("alice")
	require.NoError(t, err)
	eve, err := a.InsertUser("eve")
	require.NoError(t, err)

	authors, err := a.InsertGroup("authors")
	require.NoError(t, err)
	editors, err := a.InsertGroup("editors")
	require.NoError(t, err)

	require.NoError(t, a.Join(authors, alice))
	require.NoError(t, a.Join(editors, eve))

	groups, err := a.GetGroupsOf(alice)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "authors", groups[0].Name())

	c, err := a.InsertChain("review")
	require.NoError(t, err)
	assert.Error(t, a.UpdateChain(c, nil))
	assert.Error(t, a.UpdateChain(c, []int{0}))
	require.NoError(t, a.UpdateChain(c, []int{authors.ID(), editors.ID()}))

	chain, err := a.GetChain(c.ID())
	require.NoError(t, err)
	assert.Equal(t, "review (authors, editors)", chain.String())

	require.NoError(t, a.AssignChain("/content", true, c.ID()))

	_, err = a.GetChainOf("/content")
	assert.Equal(t, auth.ErrNoChain, err, "childrenOnly does not apply to the path itself")

	rs, err := a.ReleaseState("/content/news/item", alice)
	require.NoError(t, err)
	assert.True(t, rs.CanEdit())
	assert.False(t, rs.CanPublish())

	rs, err = a.ReleaseState("/content/news/item", eve)
	require.NoError(t, err)
	assert.True(t, rs.CanPublish())
	assert.Equal(t, "editors", rs.PublishGroup().Name())

	all, err := a.GetAllChainAssignments()
	require.NoError(t, err)
	assert.Equal(t, c.ID(), all["/content"][true])

	require.NoError(t, a.Leave(editors, eve))
	rs, err = a.ReleaseState("/content/news/item", eve)
	require.NoError(t, err)
	assert.False(t, rs.CanEdit())
}

func TestAccessRules(t *testing.T) {
	a := NewAuthDB(openTestDB(t))

	admin, err := a.InsertUser("admin")
	require.NoError(t, err)
	admins, err := a.InsertGroup("admins")
	require.NoError(t, err)
	require.NoError(t, a.Join(admins, admin))

	require.NoError(t, a.AddAccessRule("/", 0, auth.Read))
	require.NoError(t, a.AddAccessRule("/content", admins.ID(), auth.Admin))

	assert.NoError(t, a.RequirePermission(auth.Read, "/content/a", nil))
	assert.Equal(t, auth.ErrUnauthorized, a.RequirePermission(auth.Create, "/content/a", nil))
	assert.NoError(t, a.RequirePermission(auth.Admin, "/content/a", admin))
	assert.Equal(t, auth.ErrUnauthorized, a.RequirePermission(auth.Admin, "/other", admin))

	// replacing a rule
	require.NoError(t, a.AddAccessRule("/content", admins.ID(), auth.Create))
	assert.Equal(t, auth.ErrUnauthorized, a.RequirePermission(auth.Admin, "/content/a", admin))

	rules, err := a.GetAllAccessRules()
	require.NoError(t, err)
	assert.Equal(t, int(auth.Create), rules["/content"][admins.ID()])
}
