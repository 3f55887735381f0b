// Package http holds the JSON response helper used by container-invoked
// controller actions.
//
//	res := gohttp.NewResponse(w)
//
//	res.JSON(200, data)    // raw JSON with status
//	res.Success(data)      // 200 {"data": ...}
//	res.NoContent()        // 204
//	res.Error(400, "bad")  // {"message": "bad"}
//	res.Fail(err)          // 500 {"message": ..., "code": ..., "token": ...}
package http
