// Package permission implements the resolution algorithm that decides
// whether the active context grants an action on a navigational route.
//
// Two generations of the permission model coexist. The current model ties
// a grant to an exact route ("/security/users"); the legacy model ties a
// grant to a coarse module ("security") matched against the first path
// segment of a candidate route. Resolution tries the exact tier first and
// only consults the module tier when no exact grant matched, so legacy
// data keeps working without migration while never overriding an exact
// grant.
package permission
