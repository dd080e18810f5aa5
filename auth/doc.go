/*
Package auth is for authentication and authorization. It contains database interfaces (DBGroup, DBUser, DBChain), core types (Group, User, Chain) and the glue between them.

Review chains

A review chain is a list of groups.
One chain is assigned (explicitly or inherited) to every document path.
Every member of any group of the chain can edit the document and request its publication, depublication or deletion.
Members of the last group can accept and reject requests, and they can publish, depublish and delete directly.

  Example chain: economics department, editorial department, editor-in-chief

Chains follow the subset model: they are understood in terms of accountability, and any member of the last group can publish on their own.

Access rules

Access rules grant a permission on a path to a group. They are inherited by everything below the path.
Higher permissions include lower permissions. Edit permission implies read permission, but edit permission is modeled through chains and not through rules.
*/
package auth
